package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"

	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
)

// Client implements interfaces.LLM using OpenAI's chat completions API
type Client struct {
	// Client is the underlying OpenAI client; exported so tests can swap
	// in one pointed at a test server
	Client openai.Client
	// ChatService handles chat completion requests
	ChatService openai.ChatService
	// Model is the model identifier to use
	Model string

	apiKey  string
	baseURL string
	logger  logging.Logger
}

// Option configures the client
type Option func(*Client)

// WithModel sets the model to use
func WithModel(model string) Option {
	return func(c *Client) {
		c.Model = model
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// NewClient creates a new OpenAI client
func NewClient(apiKey string, options ...Option) *Client {
	client := &Client{
		Model:  openai.ChatModelGPT4o,
		apiKey: apiKey,
		logger: logging.New(),
	}

	for _, option := range options {
		option(client)
	}

	requestOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if client.baseURL != "" {
		requestOptions = append(requestOptions, option.WithBaseURL(client.baseURL))
	}
	client.Client = openai.NewClient(requestOptions...)
	client.ChatService = openai.NewChatService(requestOptions...)

	return client
}

// Name implements interfaces.LLM.Name
func (c *Client) Name() string {
	return fmt.Sprintf("openai:%s", c.Model)
}

// Generate implements interfaces.LLM.Generate
func (c *Client) Generate(ctx context.Context, prompt string, options ...interfaces.GenerateOption) (string, error) {
	opts := &interfaces.GenerateOptions{}
	for _, option := range options {
		option(opts)
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if opts.SystemMessage != "" {
		messages = append(messages, openai.SystemMessage(opts.SystemMessage))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    shared.ChatModel(c.Model),
	}
	if opts.Temperature != nil {
		params.Temperature = openai.Float(*opts.Temperature)
	}
	if opts.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*opts.MaxTokens))
	}
	if opts.ResponseFormat != nil && opts.ResponseFormat.Type == interfaces.ResponseFormatJSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   opts.ResponseFormat.Name,
					Schema: opts.ResponseFormat.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	c.logger.Debug(ctx, "Creating OpenAI chat completion request", map[string]interface{}{
		"model":             c.Model,
		"structured_output": opts.ResponseFormat != nil,
	})

	completion, err := c.ChatService.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: empty choices")
	}
	return completion.Choices[0].Message.Content, nil
}
