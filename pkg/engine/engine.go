// Package engine resolves natural-language questions against a property
// graph. A question is routed to either a generated read-only Cypher query
// or a graph algorithm tool, executed, and summarized into a plain-language
// answer.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/tagus/graphmind/pkg/cypher"
	"github.com/tagus/graphmind/pkg/fewshot"
	"github.com/tagus/graphmind/pkg/gds"
	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
	"github.com/tagus/graphmind/pkg/prompts"
	"github.com/tagus/graphmind/pkg/router"
	"github.com/tagus/graphmind/pkg/schema"
)

// Config holds engine tuning
type Config struct {
	// Database is the target database; the executor's default when empty
	Database string
	// GenerationTemperature and GenerationMaxTokens tune the query
	// generation call
	GenerationTemperature float64
	GenerationMaxTokens   int
	// SummarizationTemperature and SummarizationMaxTokens tune the
	// summarization call
	SummarizationTemperature float64
	SummarizationMaxTokens   int
	// FallbackToQuery reroutes a question to the query path when the tool
	// path fails for session or transport reasons
	FallbackToQuery bool
}

// Timings records where a question spent its time
type Timings struct {
	Routing       time.Duration
	Retrieval     time.Duration
	Generation    time.Duration
	Execution     time.Duration
	Summarization time.Duration
	Total         time.Duration
}

// Result is the full outcome of one resolved question
type Result struct {
	Question string
	// Route is how the question was answered
	Route router.Route
	// Cypher is the executed query; empty on the tool path
	Cypher string
	// Rows are the raw query results; nil on the tool path
	Rows []map[string]any
	// Tool and ToolOutput are set on the tool path
	Tool       string
	ToolOutput string
	// Summary is the plain-language answer
	Summary string
	// ExamplesUsed lists the questions of the retrieved examples that
	// shaped generation
	ExamplesUsed []string
	Timings      Timings
}

// Engine orchestrates question resolution
type Engine struct {
	llm         interfaces.LLM
	executor    interfaces.GraphExecutor
	schemaCache *schema.Cache
	cfg         Config

	terminology string
	store       *fewshot.Store
	selector    *router.Selector
	catalog     interfaces.ToolCatalog
	logger      logging.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger for the engine
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTerminology sets the domain terminology block injected into the
// generation prompt
func WithTerminology(text string) Option {
	return func(e *Engine) {
		e.terminology = text
	}
}

// WithExamples sets the few-shot example store
func WithExamples(store *fewshot.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithSelector sets the question router
func WithSelector(selector *router.Selector) Option {
	return func(e *Engine) {
		e.selector = selector
	}
}

// WithToolCatalog sets the tool server catalog used on the tool path
func WithToolCatalog(catalog interfaces.ToolCatalog) Option {
	return func(e *Engine) {
		e.catalog = catalog
	}
}

// New creates an engine over the given model, executor and schema cache
func New(llm interfaces.LLM, executor interfaces.GraphExecutor, schemaCache *schema.Cache, cfg Config, options ...Option) *Engine {
	if cfg.GenerationMaxTokens <= 0 {
		cfg.GenerationMaxTokens = 1200
	}
	if cfg.SummarizationMaxTokens <= 0 {
		cfg.SummarizationMaxTokens = 600
	}

	engine := &Engine{
		llm:         llm,
		executor:    executor,
		schemaCache: schemaCache,
		cfg:         cfg,
		logger:      logging.New(),
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// Answer resolves one question end to end
func (e *Engine) Answer(ctx context.Context, question string) (*Result, error) {
	start := time.Now()
	result := &Result{Question: question, Route: router.RouteQuery}

	decision := router.Decision{Route: router.RouteQuery}
	if e.selector != nil {
		routingStart := time.Now()
		var err error
		decision, err = e.selector.Decide(ctx, question)
		result.Timings.Routing = time.Since(routingStart)
		if err != nil {
			return nil, err
		}
	}

	if decision.Route == router.RouteTool {
		done, err := e.answerWithTool(ctx, question, decision, result)
		if err != nil {
			return nil, err
		}
		if done {
			result.Timings.Total = time.Since(start)
			e.logger.Info(ctx, "Question resolved", map[string]interface{}{
				"route":    result.Route.String(),
				"tool":     result.Tool,
				"total_ms": result.Timings.Total.Milliseconds(),
			})
			return result, nil
		}
		// Tool path fell back; continue on the query path
	}

	if err := e.answerWithQuery(ctx, question, result); err != nil {
		return nil, err
	}

	result.Timings.Total = time.Since(start)
	e.logger.Info(ctx, "Question resolved", map[string]interface{}{
		"route":    result.Route.String(),
		"rows":     len(result.Rows),
		"total_ms": result.Timings.Total.Milliseconds(),
	})
	return result, nil
}

// answerWithTool runs the tool path. It returns done=false when the
// failure is a session or transport problem and fallback is enabled; the
// caller then reroutes to the query path.
func (e *Engine) answerWithTool(ctx context.Context, question string, decision router.Decision, result *Result) (bool, error) {
	if e.catalog == nil {
		return false, nil
	}

	executionStart := time.Now()
	output, err := e.catalog.CallTool(ctx, decision.Tool, decision.Arguments)
	result.Timings.Execution = time.Since(executionStart)
	if err != nil {
		if e.cfg.FallbackToQuery && isSessionFailure(err) {
			e.logger.Warn(ctx, "Tool path unavailable, falling back to query path", map[string]interface{}{
				"tool":  decision.Tool,
				"error": err.Error(),
			})
			return false, nil
		}
		return true, &ToolExecutionError{Tool: decision.Tool, Err: err}
	}

	result.Route = router.RouteTool
	result.Tool = decision.Tool
	result.ToolOutput = output

	summarizationStart := time.Now()
	result.Summary = e.summarizeToolOutput(ctx, question, decision.Tool, output)
	result.Timings.Summarization = time.Since(summarizationStart)
	return true, nil
}

func (e *Engine) answerWithQuery(ctx context.Context, question string, result *Result) error {
	result.Route = router.RouteQuery

	snapshot, err := e.schemaCache.Get(ctx)
	if err != nil {
		if !errors.Is(err, schema.ErrSchemaUnavailable) {
			return err
		}
		// Introspection failures degrade to schema-free generation
		// rather than failing the question
		e.logger.Warn(ctx, "Schema unavailable, generating without schema context", map[string]interface{}{
			"error": err.Error(),
		})
		snapshot = &schema.Snapshot{}
	}

	examples := e.retrieveExamples(ctx, question, result)

	generationStart := time.Now()
	query, err := e.generateQuery(ctx, question, snapshot, examples)
	result.Timings.Generation = time.Since(generationStart)
	if err != nil {
		return err
	}
	result.Cypher = query

	executionStart := time.Now()
	rows, err := e.executor.ExecuteQuery(ctx, query, nil, e.cfg.Database)
	result.Timings.Execution = time.Since(executionStart)
	if err != nil {
		return &QueryExecutionError{Cypher: query, Err: err}
	}
	result.Rows = rows

	summarizationStart := time.Now()
	result.Summary = e.summarizeRows(ctx, question, query, rows)
	result.Timings.Summarization = time.Since(summarizationStart)
	return nil
}

// retrieveExamples fetches few-shot examples; retrieval failures degrade
// to zero-shot generation.
func (e *Engine) retrieveExamples(ctx context.Context, question string, result *Result) []prompts.QueryExample {
	if e.store == nil {
		return nil
	}

	retrievalStart := time.Now()
	scored, err := e.store.Retrieve(ctx, question)
	result.Timings.Retrieval = time.Since(retrievalStart)
	if err != nil {
		e.logger.Warn(ctx, "Example retrieval unavailable, generating zero-shot", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	examples := make([]prompts.QueryExample, 0, len(scored))
	for _, s := range scored {
		examples = append(examples, prompts.QueryExample{Question: s.Question, Cypher: s.Cypher})
		result.ExamplesUsed = append(result.ExamplesUsed, s.Question)
	}
	return examples
}

func (e *Engine) generateQuery(ctx context.Context, question string, snapshot *schema.Snapshot, examples []prompts.QueryExample) (string, error) {
	prompt, err := prompts.Generation(prompts.GenerationData{
		Schema:      snapshot.Formatted(),
		Terminology: e.terminology,
		Examples:    prompts.FormatExamples(examples),
		Question:    question,
	})
	if err != nil {
		return "", &QueryGenerationError{Err: err}
	}

	raw, err := e.llm.Generate(ctx, prompt,
		interfaces.WithTemperature(e.cfg.GenerationTemperature),
		interfaces.WithMaxTokens(e.cfg.GenerationMaxTokens),
	)
	if err != nil {
		return "", &QueryGenerationError{Err: err}
	}

	query := cypher.Sanitize(raw)
	if query == "" {
		return "", &QueryGenerationError{Err: errors.New("model returned an empty query")}
	}
	if err := cypher.EnsureReadOnly(query); err != nil {
		return "", &QueryGenerationError{Err: err}
	}
	return query, nil
}

// isSessionFailure reports whether a tool call failed for reasons that make
// the whole tool path unusable, as opposed to this one invocation.
func isSessionFailure(err error) bool {
	if errors.Is(err, gds.ErrSessionClosed) || errors.Is(err, gds.ErrHandshakeTimeout) {
		return true
	}
	var transportErr *gds.TransportError
	var stateErr *gds.StateError
	return errors.As(err, &transportErr) || errors.As(err, &stateErr)
}
