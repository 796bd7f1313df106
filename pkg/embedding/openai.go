package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/tagus/graphmind/pkg/logging"
)

// OpenAIEmbedder implements interfaces.Embedder using OpenAI's embeddings API
type OpenAIEmbedder struct {
	// EmbeddingService handles embedding requests; exported so tests can
	// swap in one pointed at a test server
	EmbeddingService openai.EmbeddingService
	// Model is the embedding model identifier
	Model string

	baseURL string
	logger  logging.Logger
}

// Option configures the embedder
type Option func(*OpenAIEmbedder)

// WithModel sets the embedding model to use
func WithModel(model string) Option {
	return func(e *OpenAIEmbedder) {
		e.Model = model
	}
}

// WithLogger sets the logger for the embedder
func WithLogger(logger logging.Logger) Option {
	return func(e *OpenAIEmbedder) {
		e.logger = logger
	}
}

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(e *OpenAIEmbedder) {
		e.baseURL = baseURL
	}
}

// NewOpenAIEmbedder creates a new embedder backed by OpenAI
func NewOpenAIEmbedder(apiKey string, options ...Option) *OpenAIEmbedder {
	embedder := &OpenAIEmbedder{
		Model:  string(openai.EmbeddingModelTextEmbedding3Small),
		logger: logging.New(),
	}

	for _, option := range options {
		option(embedder)
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if embedder.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(embedder.baseURL))
	}
	embedder.EmbeddingService = openai.NewEmbeddingService(requestOptions...)

	return embedder
}

// Embed implements interfaces.Embedder.Embed
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.EmbeddingService.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(e.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embedding: empty response")
	}

	vector := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vector[i] = float32(v)
	}

	e.logger.Debug(ctx, "Embedded text", map[string]interface{}{
		"model":      e.Model,
		"dimensions": len(vector),
	})
	return vector, nil
}
