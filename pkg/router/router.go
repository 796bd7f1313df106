// Package router decides how a question gets answered: by a generated
// database query, or by one of the graph algorithm tools exposed by a tool
// server. Routing is advisory; every classification failure falls open to
// the query path so a broken tool server never blocks plain questions.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tagus/graphmind/pkg/gds"
	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
	"github.com/tagus/graphmind/pkg/prompts"
	"github.com/tagus/graphmind/pkg/structuredoutput"
)

// Route is the chosen resolution path
type Route int

const (
	// RouteQuery answers via generated Cypher
	RouteQuery Route = iota
	// RouteTool answers via a graph algorithm tool
	RouteTool
)

func (r Route) String() string {
	if r == RouteTool {
		return "tool"
	}
	return "query"
}

// Decision is the outcome of routing one question
type Decision struct {
	Route     Route
	Tool      string
	Arguments map[string]any
}

// Config configures the selector
type Config struct {
	// AnalyticsEnabled gates the tool path entirely. When false every
	// question routes to the query path without consulting the LLM.
	AnalyticsEnabled bool
}

// Selector routes questions using an LLM classifier over the tool catalog
type Selector struct {
	llm     interfaces.LLM
	catalog interfaces.ToolCatalog
	cfg     Config
	logger  logging.Logger
}

// Option configures a Selector
type Option func(*Selector)

// WithLogger sets the logger for the selector
func WithLogger(logger logging.Logger) Option {
	return func(s *Selector) {
		s.logger = logger
	}
}

// NewSelector creates a selector. catalog may be nil when no tool server
// is configured; all questions then route to the query path.
func NewSelector(llm interfaces.LLM, catalog interfaces.ToolCatalog, cfg Config, options ...Option) *Selector {
	selector := &Selector{
		llm:     llm,
		catalog: catalog,
		cfg:     cfg,
		logger:  logging.New(),
	}
	for _, option := range options {
		option(selector)
	}
	return selector
}

// toolChoice is the structured output of the classifier. Arguments are a
// JSON-encoded object in a string field; strict structured output cannot
// express a free-form object directly.
type toolChoice struct {
	Tool      string `json:"tool" description:"Name of the selected tool, or \"none\" when a plain database query should answer the question"`
	Arguments string `json:"arguments" description:"Arguments for the selected tool as a JSON object encoded in a string. Use \"{}\" when no arguments are needed or no tool was selected."`
}

// Decide routes one question. Errors are returned only for caller
// cancellation; everything else falls open to the query path.
func (s *Selector) Decide(ctx context.Context, question string) (Decision, error) {
	queryPath := Decision{Route: RouteQuery}

	if !s.cfg.AnalyticsEnabled || s.catalog == nil {
		return queryPath, nil
	}

	tools, err := s.catalog.ListTools(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, ctxErr
		}
		s.logger.Warn(ctx, "Tool catalog unavailable, routing to query path", map[string]interface{}{
			"error": err.Error(),
		})
		return queryPath, nil
	}
	if len(tools) == 0 {
		return queryPath, nil
	}

	choice, err := s.classify(ctx, question, tools)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Decision{}, err
		}
		s.logger.Warn(ctx, "Classification failed, routing to query path", map[string]interface{}{
			"error": err.Error(),
		})
		return queryPath, nil
	}

	if choice.Tool == "" || choice.Tool == "none" {
		return queryPath, nil
	}

	descriptor, known := findTool(tools, choice.Tool)
	if !known {
		s.logger.Warn(ctx, "Classifier selected unknown tool, routing to query path", map[string]interface{}{
			"tool": choice.Tool,
		})
		return queryPath, nil
	}

	args := map[string]any{}
	if choice.Arguments != "" {
		if err := json.Unmarshal([]byte(choice.Arguments), &args); err != nil {
			s.logger.Warn(ctx, "Classifier produced malformed arguments, routing to query path", map[string]interface{}{
				"tool":  choice.Tool,
				"error": err.Error(),
			})
			return queryPath, nil
		}
	}

	if err := gds.ValidateArguments(descriptor, args); err != nil {
		s.logger.Warn(ctx, "Classifier arguments rejected by tool schema, routing to query path", map[string]interface{}{
			"tool":  choice.Tool,
			"error": err.Error(),
		})
		return queryPath, nil
	}

	s.logger.Info(ctx, "Routed question to tool path", map[string]interface{}{
		"tool": choice.Tool,
	})
	return Decision{Route: RouteTool, Tool: choice.Tool, Arguments: args}, nil
}

func (s *Selector) classify(ctx context.Context, question string, tools []interfaces.ToolDescriptor) (toolChoice, error) {
	options := make([]prompts.ToolOption, 0, len(tools))
	for _, tool := range tools {
		options = append(options, prompts.ToolOption{Name: tool.Name, Description: tool.Description})
	}

	prompt, err := prompts.Classification(prompts.ClassificationData{
		Question: question,
		Tools:    options,
	})
	if err != nil {
		return toolChoice{}, err
	}

	raw, err := s.llm.Generate(ctx, prompt,
		interfaces.WithTemperature(0),
		interfaces.WithResponseFormat(*structuredoutput.NewResponseFormat(toolChoice{})),
	)
	if err != nil {
		return toolChoice{}, fmt.Errorf("classifier call: %w", err)
	}

	var choice toolChoice
	if err := json.Unmarshal([]byte(raw), &choice); err != nil {
		return toolChoice{}, fmt.Errorf("parsing classifier output: %w", err)
	}
	return choice, nil
}

func findTool(tools []interfaces.ToolDescriptor, name string) (interfaces.ToolDescriptor, bool) {
	for _, tool := range tools {
		if tool.Name == name {
			return tool, true
		}
	}
	return interfaces.ToolDescriptor{}, false
}
