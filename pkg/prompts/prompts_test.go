package prompts

import (
	"strings"
	"testing"
)

func TestGenerationIncludesAllSections(t *testing.T) {
	got, err := Generation(GenerationData{
		Schema:      "Node properties:\nPerson {name: STRING}",
		Terminology: "colleague: a person connected by WORKS_WITH",
		Examples:    "Question: q\nCypher: MATCH (n) RETURN n",
		Question:    "Who works with Alice?",
	})
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}

	for _, want := range []string{
		"Person {name: STRING}",
		"colleague: a person connected by WORKS_WITH",
		"MATCH (n) RETURN n",
		"Question: Who works with Alice?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerationOmitsEmptySections(t *testing.T) {
	got, err := Generation(GenerationData{
		Schema:   "Node properties:",
		Question: "How many nodes?",
	})
	if err != nil {
		t.Fatalf("Generation: %v", err)
	}
	if strings.Contains(got, "Domain terminology") {
		t.Error("terminology section rendered for empty terminology")
	}
	if strings.Contains(got, "Example questions") {
		t.Error("examples section rendered for empty examples")
	}
}

func TestClassificationListsTools(t *testing.T) {
	got, err := Classification(ClassificationData{
		Question: "Which person is most central?",
		Tools: []ToolOption{
			{Name: "pagerank", Description: "Computes PageRank centrality"},
			{Name: "louvain", Description: "Detects communities"},
		},
	})
	if err != nil {
		t.Fatalf("Classification: %v", err)
	}
	if !strings.Contains(got, "- pagerank: Computes PageRank centrality") {
		t.Errorf("prompt missing pagerank entry:\n%s", got)
	}
	if !strings.Contains(got, `"none"`) {
		t.Error("prompt missing the none sentinel instruction")
	}
}

func TestFormatExamples(t *testing.T) {
	got := FormatExamples([]QueryExample{
		{Question: "a", Cypher: "RETURN 1"},
		{Question: "b", Cypher: "RETURN 2"},
	})
	want := "Question: a\nCypher: RETURN 1\n\nQuestion: b\nCypher: RETURN 2\n"
	if got != want {
		t.Errorf("FormatExamples = %q, want %q", got, want)
	}
}
