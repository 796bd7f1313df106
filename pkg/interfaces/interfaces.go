package interfaces

import (
	"context"
)

// JSONSchema represents a JSON schema as a generic map
type JSONSchema map[string]interface{}

// ResponseFormatType defines the type of structured output requested from an LLM
type ResponseFormatType string

const (
	// ResponseFormatText is plain text output
	ResponseFormatText ResponseFormatType = "text"
	// ResponseFormatJSON is JSON output constrained by a schema
	ResponseFormatJSON ResponseFormatType = "json_schema"
)

// ResponseFormat describes a structured-output constraint for an LLM call
type ResponseFormat struct {
	Type   ResponseFormatType
	Name   string
	Schema JSONSchema
}

// GenerateOptions holds per-call options for LLM generation
type GenerateOptions struct {
	SystemMessage  string
	Temperature    *float64
	MaxTokens      *int
	ResponseFormat *ResponseFormat
}

// GenerateOption configures a single LLM generation call
type GenerateOption func(*GenerateOptions)

// WithSystemMessage sets the system message for the call
func WithSystemMessage(msg string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemMessage = msg
	}
}

// WithTemperature sets the sampling temperature for the call
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the number of generated tokens for the call
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = &n
	}
}

// WithResponseFormat constrains the call to structured output
func WithResponseFormat(format ResponseFormat) GenerateOption {
	return func(o *GenerateOptions) {
		o.ResponseFormat = &format
	}
}

// LLM is the language model boundary. Rate-limit and timeout errors are
// returned as-is; the core does not retry automatically.
type LLM interface {
	// Generate produces text (or schema-constrained JSON) for a prompt
	Generate(ctx context.Context, prompt string, options ...GenerateOption) (string, error)

	// Name returns the provider/model identifier for logging
	Name() string
}

// Embedder is the embedding boundary: text in, fixed-length vector out.
// Deterministic for a given model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GraphExecutor is the graph database boundary. It accepts a query string,
// bindings and a target database, and returns row mappings or a structured
// execution error.
type GraphExecutor interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any, database string) ([]map[string]any, error)
}

// ToolDescriptor describes one tool exposed by a tool server. InputSchema
// is the JSON schema for the tool's arguments as declared by the server.
// Descriptors are only valid for the lifetime of the session that
// produced them.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema JSONSchema
}

// ToolCatalog exposes the tool surface of a live tool-server session.
type ToolCatalog interface {
	// ListTools returns the cached tool catalog, fetching it on first use
	ListTools(ctx context.Context) ([]ToolDescriptor, error)

	// CallTool invokes a tool by name and returns its textual content payload
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}
