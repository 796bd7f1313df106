// Package prompts holds the prompt templates for query generation, result
// summarization and question routing. Templates are compiled once at init.
package prompts

import (
	"fmt"
	"strings"
	"text/template"
)

const generationTemplate = `You are an expert Cypher query writer for a Neo4j graph database.
Write a single Cypher query that answers the user's question.

Schema:
{{.Schema}}

{{if .Terminology -}}
Domain terminology:
{{.Terminology}}

{{end -}}
{{if .Examples -}}
Example questions and queries:
{{.Examples}}

{{end -}}
Rules:
- Use only the node labels, relationship types and properties listed in the schema.
- The query must be read-only. Never use CREATE, MERGE, DELETE, DETACH, SET, REMOVE, DROP or LOAD CSV.
- Output only the Cypher query, with no markdown fences and no commentary.

Question: {{.Question}}`

const summarizationTemplate = `A user asked a question about a graph database. The question was answered
by running a Cypher query. Summarize the results in plain language.

Question: {{.Question}}

Cypher:
{{.Cypher}}

Results (JSON, first rows):
{{.Results}}

Answer concisely and base the answer only on the results shown. If the
results are empty, say that no matching data was found.`

const classificationTemplate = `You are routing a question about a graph database. Decide whether one of
the graph algorithm tools below is required to answer it, or whether a
plain database query is enough.

Available tools:
{{range .Tools}}- {{.Name}}: {{.Description}}
{{end}}
Pick a tool only when the question genuinely needs its algorithm, for
example centrality, community detection or path finding across the whole
graph. Pick "none" when a direct query can answer the question. When you
pick a tool, fill in its arguments from the question.

Question: {{.Question}}`

var (
	generation     = template.Must(template.New("generation").Parse(generationTemplate))
	summarization  = template.Must(template.New("summarization").Parse(summarizationTemplate))
	classification = template.Must(template.New("classification").Parse(classificationTemplate))
)

// GenerationData fills the query generation template
type GenerationData struct {
	Schema      string
	Terminology string
	Examples    string
	Question    string
}

// SummarizationData fills the result summarization template
type SummarizationData struct {
	Question string
	Cypher   string
	Results  string
}

// ToolOption is one tool offered to the routing classifier
type ToolOption struct {
	Name        string
	Description string
}

// ClassificationData fills the routing template
type ClassificationData struct {
	Question string
	Tools    []ToolOption
}

// Generation renders the query generation prompt
func Generation(data GenerationData) (string, error) {
	return render(generation, data)
}

// Summarization renders the result summarization prompt
func Summarization(data SummarizationData) (string, error) {
	return render(summarization, data)
}

// Classification renders the routing prompt
func Classification(data ClassificationData) (string, error) {
	return render(classification, data)
}

// QueryExample is one question/query pair formatted into the generation prompt
type QueryExample struct {
	Question string
	Cypher   string
}

// FormatExamples renders retrieved examples as a prompt block
func FormatExamples(examples []QueryExample) string {
	var b strings.Builder
	for i, example := range examples {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Question: %s\nCypher: %s\n", example.Question, example.Cypher)
	}
	return b.String()
}

func render(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}
