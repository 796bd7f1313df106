// Command graphmind answers one natural-language question about a Neo4j
// property graph and prints the answer. Configuration comes from the
// environment; see pkg/config.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tagus/graphmind/pkg/config"
	"github.com/tagus/graphmind/pkg/embedding"
	"github.com/tagus/graphmind/pkg/engine"
	"github.com/tagus/graphmind/pkg/fewshot"
	"github.com/tagus/graphmind/pkg/gds"
	"github.com/tagus/graphmind/pkg/graph"
	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/llm/openai"
	"github.com/tagus/graphmind/pkg/logging"
	"github.com/tagus/graphmind/pkg/router"
	"github.com/tagus/graphmind/pkg/schema"
)

var logger = logging.New()

func main() {
	jsonOutput := flag.Bool("json", false, "print the full result as JSON")
	schemaOnly := flag.Bool("schema-only", false, "print the graph schema and exit")
	seedPath := flag.String("seed", "", "seed few-shot examples from a YAML file before answering")
	flag.Parse()

	ctx := context.Background()
	cfg := config.Get()

	executor, err := graph.New(ctx, graph.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	}, graph.WithLogger(logger))
	if err != nil {
		fatal("connecting to neo4j: %v", err)
	}
	defer executor.Close(ctx)

	schemaCache := schema.NewCache(executor, cfg.Neo4j.Database,
		schema.WithExcludedProperties(cfg.Schema.ExcludedProperties),
		schema.WithLogger(logger),
	)

	if *schemaOnly {
		snapshot, err := schemaCache.Get(ctx)
		if err != nil {
			fatal("fetching schema: %v", err)
		}
		fmt.Println(snapshot.Formatted())
		return
	}

	question := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if question == "" {
		question = os.Getenv("QUESTION")
	}
	if question == "" {
		fmt.Fprintln(os.Stderr, "usage: graphmind [flags] \"question\"")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if cfg.LLM.OpenAI.APIKey == "" {
		fatal("OPENAI_API_KEY not set")
	}

	llmOptions := []openai.Option{
		openai.WithModel(cfg.LLM.OpenAI.Model),
		openai.WithLogger(logger),
	}
	if cfg.LLM.OpenAI.BaseURL != "" {
		llmOptions = append(llmOptions, openai.WithBaseURL(cfg.LLM.OpenAI.BaseURL))
	}
	llm := openai.NewClient(cfg.LLM.OpenAI.APIKey, llmOptions...)

	store := buildExampleStore(ctx, cfg, executor)
	if *seedPath != "" && store != nil {
		added, err := store.SeedFromFile(ctx, *seedPath)
		if err != nil {
			fatal("seeding examples: %v", err)
		}
		logger.Info(ctx, "Seeded examples", map[string]interface{}{"count": added})
	}

	terminology := loadTerminology(cfg.Terminology.Path)

	options := []engine.Option{
		engine.WithLogger(logger),
		engine.WithTerminology(terminology),
	}
	if store != nil {
		options = append(options, engine.WithExamples(store))
	}

	var session *gds.Session
	if cfg.Analytics.Enabled && cfg.Tools.GDS.Command != "" {
		session = gds.NewSession(gds.Config{
			Command:          cfg.Tools.GDS.Command,
			Args:             cfg.Tools.GDS.Args,
			Env:              toolServerEnv(cfg),
			HandshakeTimeout: cfg.Analytics.HandshakeTimeout,
			Logger:           logger,
		})
		if err := session.Start(ctx); err != nil {
			// A dead tool server only disables the tool path
			logger.Warn(ctx, "Tool server unavailable, analytics disabled", map[string]interface{}{
				"error": err.Error(),
			})
			session = nil
		} else {
			defer session.Close()
		}
	}

	var catalog interfaces.ToolCatalog
	if session != nil {
		catalog = session
	}
	selector := router.NewSelector(llm, catalog, router.Config{
		AnalyticsEnabled: cfg.Analytics.Enabled && catalog != nil,
	}, router.WithLogger(logger))
	options = append(options, engine.WithSelector(selector), engine.WithToolCatalog(catalog))

	eng := engine.New(llm, executor, schemaCache, engine.Config{
		Database:                 cfg.Neo4j.Database,
		GenerationTemperature:    cfg.Generation.Temperature,
		GenerationMaxTokens:      cfg.Generation.MaxTokens,
		SummarizationTemperature: cfg.Summarization.Temperature,
		SummarizationMaxTokens:   cfg.Summarization.MaxTokens,
		FallbackToQuery:          cfg.Analytics.FallbackToQuery,
	}, options...)

	result, err := eng.Answer(ctx, question)
	if err != nil {
		fatal("answering question: %v", err)
	}

	if *jsonOutput {
		printJSON(result)
		return
	}

	fmt.Println(result.Summary)
	if result.Cypher != "" {
		fmt.Fprintf(os.Stderr, "\ncypher: %s\n", result.Cypher)
	}
	if result.Tool != "" {
		fmt.Fprintf(os.Stderr, "\ntool: %s\n", result.Tool)
	}
}

// buildExampleStore wires the embedder and the Neo4j-backed example index.
// Without an API key there is no embedder, so retrieval is disabled.
func buildExampleStore(ctx context.Context, cfg *config.Config, executor *graph.Executor) *fewshot.Store {
	if cfg.LLM.OpenAI.APIKey == "" {
		return nil
	}

	embedderOptions := []embedding.Option{
		embedding.WithModel(cfg.LLM.OpenAI.EmbeddingModel),
		embedding.WithLogger(logger),
	}
	if cfg.LLM.OpenAI.BaseURL != "" {
		embedderOptions = append(embedderOptions, embedding.WithBaseURL(cfg.LLM.OpenAI.BaseURL))
	}
	embedder := embedding.NewOpenAIEmbedder(cfg.LLM.OpenAI.APIKey, embedderOptions...)

	index := fewshot.NewNeo4jIndex(executor, fewshot.Neo4jIndexConfig{
		IndexName: cfg.Retrieval.IndexName,
		NodeLabel: cfg.Retrieval.NodeLabel,
		Database:  cfg.Neo4j.Database,
	}, fewshot.WithIndexLogger(logger))

	return fewshot.NewStore(embedder, index, fewshot.StoreConfig{
		TopK:          cfg.Retrieval.TopK,
		MinSimilarity: cfg.Retrieval.MinSimilarity,
	}, fewshot.WithStoreLogger(logger))
}

func loadTerminology(path string) string {
	terminology, err := schema.LoadTerminology(path)
	if err != nil {
		logger.Warn(context.Background(), "Terminology unavailable", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return ""
	}
	return terminology.AsText()
}

// toolServerEnv is the complete child environment for the tool server. The
// parent environment is never inherited; the child gets exactly the graph
// credentials it needs plus PATH.
func toolServerEnv(cfg *config.Config) map[string]string {
	return map[string]string{
		"PATH":           os.Getenv("PATH"),
		"NEO4J_URI":      cfg.Neo4j.URI,
		"NEO4J_USERNAME": cfg.Neo4j.Username,
		"NEO4J_PASSWORD": cfg.Neo4j.Password,
		"NEO4J_DATABASE": cfg.Neo4j.Database,
	}
}

func printJSON(result *engine.Result) {
	out := map[string]any{
		"question":      result.Question,
		"route":         result.Route.String(),
		"cypher":        result.Cypher,
		"results":       result.Rows,
		"tool":          result.Tool,
		"tool_output":   result.ToolOutput,
		"summary":       result.Summary,
		"examples_used": result.ExamplesUsed,
		"timings_ms": map[string]int64{
			"routing":       result.Timings.Routing.Milliseconds(),
			"retrieval":     result.Timings.Retrieval.Milliseconds(),
			"generation":    result.Timings.Generation.Milliseconds(),
			"execution":     result.Timings.Execution.Milliseconds(),
			"summarization": result.Timings.Summarization.Milliseconds(),
			"total":         result.Timings.Total.Milliseconds(),
		},
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		fatal("encoding result: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "graphmind: "+format+"\n", args...)
	os.Exit(1)
}
