package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/prompts"
)

// summaryRowLimit bounds how many result rows the summarizer sees. Large
// result sets are previewed, not replayed verbatim into the model.
const summaryRowLimit = 10

// summarizeRows turns query results into a plain-language answer. A
// summarization failure degrades to a naive summary instead of failing
// the question.
func (e *Engine) summarizeRows(ctx context.Context, question, query string, rows []map[string]any) string {
	preview := rows
	if len(preview) > summaryRowLimit {
		preview = preview[:summaryRowLimit]
	}

	encoded, err := json.Marshal(preview)
	if err != nil {
		return naiveSummary(len(rows))
	}

	summary, err := e.summarize(ctx, prompts.SummarizationData{
		Question: question,
		Cypher:   query,
		Results:  string(encoded),
	})
	if err != nil {
		e.logger.Warn(ctx, "Summarization failed, using naive summary", map[string]interface{}{
			"error": err.Error(),
		})
		return naiveSummary(len(rows))
	}
	return summary
}

// summarizeToolOutput answers from a graph algorithm result
func (e *Engine) summarizeToolOutput(ctx context.Context, question, tool, output string) string {
	summary, err := e.summarize(ctx, prompts.SummarizationData{
		Question: question,
		Cypher:   fmt.Sprintf("(graph algorithm: %s)", tool),
		Results:  output,
	})
	if err != nil {
		e.logger.Warn(ctx, "Summarization failed, returning raw tool output", map[string]interface{}{
			"tool":  tool,
			"error": err.Error(),
		})
		return output
	}
	return summary
}

func (e *Engine) summarize(ctx context.Context, data prompts.SummarizationData) (string, error) {
	prompt, err := prompts.Summarization(data)
	if err != nil {
		return "", err
	}
	return e.llm.Generate(ctx, prompt,
		interfaces.WithTemperature(e.cfg.SummarizationTemperature),
		interfaces.WithMaxTokens(e.cfg.SummarizationMaxTokens),
	)
}

func naiveSummary(rowCount int) string {
	switch rowCount {
	case 0:
		return "No matching data was found."
	case 1:
		return "The query returned 1 result."
	default:
		return fmt.Sprintf("The query returned %d results.", rowCount)
	}
}
