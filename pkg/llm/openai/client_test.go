package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openaisdk "github.com/openai/openai-go/v2"

	"github.com/tagus/graphmind/pkg/interfaces"
	openai_client "github.com/tagus/graphmind/pkg/llm/openai"
	"github.com/tagus/graphmind/pkg/logging"
)

func newTestServer(t *testing.T, content string, capture *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header with test-key")
		}

		var reqBody map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if capture != nil {
			*capture = reqBody
		}

		w.Header().Set("Content-Type", "application/json")
		response := openaisdk.ChatCompletion{
			Choices: []openaisdk.ChatCompletionChoice{
				{
					Message: openaisdk.ChatCompletionMessage{
						Content: content,
						Role:    "assistant",
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(response); err != nil {
			t.Fatalf("Failed to encode response: %v", err)
		}
	}))
}

func TestGenerate(t *testing.T) {
	var reqBody map[string]interface{}
	server := newTestServer(t, "MATCH (n) RETURN n", &reqBody)
	defer server.Close()

	client := openai_client.NewClient("test-key",
		openai_client.WithModel("gpt-4o"),
		openai_client.WithLogger(logging.NoOp()),
		openai_client.WithBaseURL(server.URL),
	)

	resp, err := client.Generate(context.Background(), "write a query",
		interfaces.WithSystemMessage("You write Cypher."),
		interfaces.WithTemperature(0),
		interfaces.WithMaxTokens(1200),
	)
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	if resp != "MATCH (n) RETURN n" {
		t.Errorf("Expected response 'MATCH (n) RETURN n', got '%s'", resp)
	}

	messages, ok := reqBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("Expected system + user messages, got %v", reqBody["messages"])
	}
	first := messages[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Errorf("Expected first message role system, got %v", first["role"])
	}
	if reqBody["model"] != "gpt-4o" {
		t.Errorf("Expected model gpt-4o, got %v", reqBody["model"])
	}
}

func TestGenerateWithResponseFormat(t *testing.T) {
	var reqBody map[string]interface{}
	server := newTestServer(t, `{"tool": "none"}`, &reqBody)
	defer server.Close()

	client := openai_client.NewClient("test-key",
		openai_client.WithLogger(logging.NoOp()),
		openai_client.WithBaseURL(server.URL),
	)

	resp, err := client.Generate(context.Background(), "route this",
		interfaces.WithResponseFormat(interfaces.ResponseFormat{
			Type:   interfaces.ResponseFormatJSON,
			Name:   "toolChoice",
			Schema: interfaces.JSONSchema{"type": "object"},
		}),
	)
	if err != nil {
		t.Fatalf("Failed to generate: %v", err)
	}
	if resp != `{"tool": "none"}` {
		t.Errorf("Unexpected response: %s", resp)
	}

	format, ok := reqBody["response_format"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected response_format in request, got %v", reqBody)
	}
	if format["type"] != "json_schema" {
		t.Errorf("Expected response_format type json_schema, got %v", format["type"])
	}
}

func TestName(t *testing.T) {
	client := openai_client.NewClient("test-key", openai_client.WithModel("gpt-4o-mini"))
	if client.Name() != "openai:gpt-4o-mini" {
		t.Errorf("Name() = %s", client.Name())
	}
}
