package structuredoutput

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagus/graphmind/pkg/interfaces"
)

type toolChoice struct {
	Tool      string         `json:"tool" description:"Selected tool name" enum:"pagerank,louvain,none"`
	Arguments map[string]any `json:"arguments,omitempty" description:"Tool arguments"`
}

func TestNewResponseFormat(t *testing.T) {
	format := NewResponseFormat(&toolChoice{})

	assert.Equal(t, interfaces.ResponseFormatJSON, format.Type)
	assert.Equal(t, "toolChoice", format.Name)

	properties, ok := format.Schema["properties"].(map[string]any)
	require.True(t, ok, "schema must have properties")

	tool, ok := properties["tool"].(map[string]any)
	require.True(t, ok, "tool property missing")
	assert.Equal(t, "string", tool["type"])
	assert.Equal(t, "Selected tool name", tool["description"])
	assert.Equal(t, []any{"pagerank", "louvain", "none"}, tool["enum"])

	assert.Equal(t, []string{"tool"}, format.Schema["required"])
	assert.Equal(t, false, format.Schema["additionalProperties"])
}

func TestNestedStructSchema(t *testing.T) {
	type inner struct {
		Limit int `json:"limit"`
	}
	type outer struct {
		Items []inner `json:"items"`
		Score float64 `json:"score,omitempty"`
	}

	format := NewResponseFormat(outer{})
	properties, ok := format.Schema["properties"].(map[string]any)
	require.True(t, ok)

	items, ok := properties["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", items["type"])

	itemSchema, ok := items["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "object", itemSchema["type"])
	assert.Equal(t, []string{"limit"}, itemSchema["required"])

	score, ok := properties["score"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", score["type"])
}

func TestSkippedAndUnnamedFields(t *testing.T) {
	type sample struct {
		Kept    string `json:"kept"`
		Skipped string `json:"-"`
		Bare    bool
	}

	format := NewResponseFormat(sample{})
	properties := format.Schema["properties"].(map[string]any)

	assert.Contains(t, properties, "kept")
	assert.Contains(t, properties, "Bare")
	assert.NotContains(t, properties, "Skipped")
	assert.NotContains(t, properties, "-")
}
