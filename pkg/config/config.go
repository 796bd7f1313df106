package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the global configuration for the engine
type Config struct {
	// LLM configuration
	LLM struct {
		// OpenAI configuration
		OpenAI struct {
			APIKey         string
			Model          string
			Temperature    float64
			BaseURL        string
			Timeout        time.Duration
			EmbeddingModel string
		}
	}

	// Neo4j configuration
	Neo4j struct {
		URI      string
		Username string
		Password string
		Database string
	}

	// Generation configuration for the text-to-Cypher pipeline
	Generation struct {
		Temperature float64
		MaxTokens   int
	}

	// Summarization configuration for the result summarizer
	Summarization struct {
		Temperature float64
		MaxTokens   int
	}

	// Retrieval configuration for few-shot example search
	Retrieval struct {
		TopK          int
		IndexName     string
		NodeLabel     string
		MinSimilarity float64
	}

	// Analytics configuration for the graph-algorithm tool route
	Analytics struct {
		Enabled          bool
		HandshakeTimeout time.Duration
		FallbackToQuery  bool
	}

	// Tools configuration
	Tools struct {
		// GDS tool server launched as a child process
		GDS struct {
			Command string
			Args    []string
		}
	}

	// Schema configuration
	Schema struct {
		// ExcludedProperties maps node labels to property names that are
		// stripped from the schema before it reaches a prompt
		ExcludedProperties map[string][]string
	}

	// Terminology configuration
	Terminology struct {
		Path string
	}

	// Examples configuration for seed few-shot examples
	Examples struct {
		Path string
	}
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	config := &Config{}

	// LLM configuration
	config.LLM.OpenAI.APIKey = getEnv("OPENAI_API_KEY", "")
	config.LLM.OpenAI.Model = getEnv("OPENAI_MODEL", "gpt-4o-mini")
	config.LLM.OpenAI.Temperature = getEnvFloat("OPENAI_TEMPERATURE", 0.0)
	config.LLM.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", "")
	config.LLM.OpenAI.Timeout = time.Duration(getEnvInt("OPENAI_TIMEOUT", 60)) * time.Second
	config.LLM.OpenAI.EmbeddingModel = getEnv("EMBEDDING_MODEL", "text-embedding-3-small")

	// Neo4j configuration
	config.Neo4j.URI = getEnv("NEO4J_URI", "bolt://localhost:7687")
	config.Neo4j.Username = getEnv("NEO4J_USERNAME", getEnv("NEO4J_USER", "neo4j"))
	config.Neo4j.Password = getEnv("NEO4J_PASSWORD", "")
	config.Neo4j.Database = getEnv("NEO4J_DATABASE", "neo4j")

	// Pipeline configuration
	config.Generation.Temperature = getEnvFloat("GENERATION_TEMPERATURE", 0.0)
	config.Generation.MaxTokens = getEnvInt("GENERATION_MAX_TOKENS", 1200)
	config.Summarization.Temperature = getEnvFloat("SUMMARY_TEMPERATURE", 0.0)
	config.Summarization.MaxTokens = getEnvInt("SUMMARY_MAX_TOKENS", 600)

	// Retrieval configuration
	config.Retrieval.TopK = getEnvInt("VECTOR_SEARCH_TOP_K", 5)
	config.Retrieval.IndexName = getEnv("VECTOR_INDEX_NAME", "query_examples")
	config.Retrieval.NodeLabel = getEnv("VECTOR_NODE_LABEL", "QueryExample")
	config.Retrieval.MinSimilarity = getEnvFloat("VECTOR_MIN_SIMILARITY", 0.0)

	// Analytics configuration
	config.Analytics.Enabled = getEnvBool("ANALYTICS_ENABLED", false)
	config.Analytics.HandshakeTimeout = time.Duration(getEnvInt("GDS_HANDSHAKE_TIMEOUT", 15)) * time.Second
	config.Analytics.FallbackToQuery = getEnvBool("ANALYTICS_FALLBACK_TO_QUERY", true)

	// Tools configuration
	config.Tools.GDS.Command = getEnv("GDS_AGENT_COMMAND", "gds-agent")
	config.Tools.GDS.Args = getEnvList("GDS_AGENT_ARGS", nil)

	// Schema configuration
	config.Schema.ExcludedProperties = map[string][]string{
		"Person": {"UserID"},
	}

	// Terminology and seed examples
	config.Terminology.Path = getEnv("TERMINOLOGY_PATH", "")
	config.Examples.Path = getEnv("QUERY_EXAMPLES_PATH", "")

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

// getEnvList gets a comma-separated environment variable or returns a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Global instance of the configuration
var globalConfig *Config

// Initialize the global configuration
func init() {
	globalConfig = LoadFromEnv()
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Reload reloads the configuration from environment variables
func Reload() *Config {
	globalConfig = LoadFromEnv()
	return globalConfig
}
