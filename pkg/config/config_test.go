package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg := LoadFromEnv()

	if cfg.Neo4j.URI != "bolt://localhost:7687" {
		t.Errorf("Neo4j.URI = %s", cfg.Neo4j.URI)
	}
	if cfg.Generation.MaxTokens != 1200 {
		t.Errorf("Generation.MaxTokens = %d, want 1200", cfg.Generation.MaxTokens)
	}
	if cfg.Summarization.MaxTokens != 600 {
		t.Errorf("Summarization.MaxTokens = %d, want 600", cfg.Summarization.MaxTokens)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("Retrieval.TopK = %d, want 5", cfg.Retrieval.TopK)
	}
	if cfg.Analytics.Enabled {
		t.Error("Analytics.Enabled should default to false")
	}
	if !cfg.Analytics.FallbackToQuery {
		t.Error("Analytics.FallbackToQuery should default to true")
	}
	if cfg.Analytics.HandshakeTimeout != 15*time.Second {
		t.Errorf("Analytics.HandshakeTimeout = %v, want 15s", cfg.Analytics.HandshakeTimeout)
	}
	if got := cfg.Schema.ExcludedProperties["Person"]; len(got) != 1 || got[0] != "UserID" {
		t.Errorf("ExcludedProperties[Person] = %v", got)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("NEO4J_URI", "neo4j://db:7687")
	t.Setenv("ANALYTICS_ENABLED", "true")
	t.Setenv("GDS_AGENT_ARGS", "--graph, social")
	t.Setenv("VECTOR_SEARCH_TOP_K", "3")
	t.Setenv("GENERATION_TEMPERATURE", "0.2")

	cfg := LoadFromEnv()

	if cfg.Neo4j.URI != "neo4j://db:7687" {
		t.Errorf("Neo4j.URI = %s", cfg.Neo4j.URI)
	}
	if !cfg.Analytics.Enabled {
		t.Error("Analytics.Enabled override ignored")
	}
	if len(cfg.Tools.GDS.Args) != 2 || cfg.Tools.GDS.Args[1] != "social" {
		t.Errorf("Tools.GDS.Args = %v", cfg.Tools.GDS.Args)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("Retrieval.TopK = %d, want 3", cfg.Retrieval.TopK)
	}
	if cfg.Generation.Temperature != 0.2 {
		t.Errorf("Generation.Temperature = %v, want 0.2", cfg.Generation.Temperature)
	}
}

func TestLoadFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("VECTOR_SEARCH_TOP_K", "not-a-number")
	t.Setenv("ANALYTICS_ENABLED", "not-a-bool")

	cfg := LoadFromEnv()

	if cfg.Retrieval.TopK != 5 {
		t.Errorf("Retrieval.TopK = %d, want default 5", cfg.Retrieval.TopK)
	}
	if cfg.Analytics.Enabled {
		t.Error("invalid bool should fall back to default false")
	}
}
