package fewshot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tagus/graphmind/pkg/logging"
)

// graphClient is the slice of the graph executor the index needs
type graphClient interface {
	ExecuteQuery(ctx context.Context, query string, params map[string]any, database string) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any, database string) error
}

// Neo4jIndexConfig configures a Neo4jIndex
type Neo4jIndexConfig struct {
	// IndexName is the Neo4j vector index backing similarity search
	IndexName string
	// NodeLabel is the label of stored example nodes
	NodeLabel string
	// Database is the target database; the executor's default when empty
	Database string
	// Dimensions is the embedding vector size, needed to create the index
	Dimensions int
}

// Neo4jIndex stores examples as labeled nodes and searches them through a
// Neo4j vector index. When the vector index procedure is unavailable (no
// index yet, or an older server), Search falls back to scanning the example
// nodes and scoring them in process.
type Neo4jIndex struct {
	client graphClient
	cfg    Neo4jIndexConfig
	logger logging.Logger
}

// Neo4jIndexOption configures a Neo4jIndex
type Neo4jIndexOption func(*Neo4jIndex)

// WithIndexLogger sets the logger for the index
func WithIndexLogger(logger logging.Logger) Neo4jIndexOption {
	return func(n *Neo4jIndex) {
		n.logger = logger
	}
}

// NewNeo4jIndex creates an index over the given graph client
func NewNeo4jIndex(client graphClient, cfg Neo4jIndexConfig, options ...Neo4jIndexOption) *Neo4jIndex {
	if cfg.IndexName == "" {
		cfg.IndexName = "query_examples"
	}
	if cfg.NodeLabel == "" {
		cfg.NodeLabel = "QueryExample"
	}

	index := &Neo4jIndex{
		client: client,
		cfg:    cfg,
		logger: logging.New(),
	}
	for _, option := range options {
		option(index)
	}
	return index
}

// EnsureIndex creates the vector index if it does not exist. Index and
// label names cannot be bound as parameters, so they are interpolated;
// both come from configuration, never from user input.
func (n *Neo4jIndex) EnsureIndex(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE VECTOR INDEX %s IF NOT EXISTS FOR (e:%s) ON (e.embedding) "+
			"OPTIONS {indexConfig: {`vector.dimensions`: $dimensions, `vector.similarity_function`: 'cosine'}}",
		n.cfg.IndexName, n.cfg.NodeLabel,
	)
	err := n.client.ExecuteWrite(ctx, query, map[string]any{
		"dimensions": n.cfg.Dimensions,
	}, n.cfg.Database)
	if err != nil {
		return fmt.Errorf("creating vector index %s: %w", n.cfg.IndexName, err)
	}
	return nil
}

// Add implements Index.Add
func (n *Neo4jIndex) Add(ctx context.Context, example Example) error {
	query := fmt.Sprintf(
		"MERGE (e:%s {id: $id}) SET e.question = $question, e.cypher = $cypher, "+
			"e.category = $category, e.embedding = $embedding, e.addedAt = $addedAt",
		n.cfg.NodeLabel,
	)
	err := n.client.ExecuteWrite(ctx, query, map[string]any{
		"id":        example.ID,
		"question":  example.Question,
		"cypher":    example.Cypher,
		"category":  example.Category,
		"embedding": toFloat64s(example.Embedding),
		"addedAt":   example.AddedAt.UnixMilli(),
	}, n.cfg.Database)
	if err != nil {
		return fmt.Errorf("storing example %s: %w", example.ID, err)
	}
	return nil
}

// Search implements Index.Search
func (n *Neo4jIndex) Search(ctx context.Context, vector []float32, topK int) ([]Scored, error) {
	if topK <= 0 {
		return nil, nil
	}

	query := "CALL db.index.vector.queryNodes($index, $k, $vector) YIELD node, score " +
		"RETURN node.id AS id, node.question AS question, node.cypher AS cypher, " +
		"node.category AS category, node.addedAt AS addedAt, score " +
		"ORDER BY score DESC, addedAt DESC"
	rows, err := n.client.ExecuteQuery(ctx, query, map[string]any{
		"index":  n.cfg.IndexName,
		"k":      topK,
		"vector": toFloat64s(vector),
	}, n.cfg.Database)
	if err != nil {
		if !isVectorIndexUnavailable(err) {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		n.logger.Warn(ctx, "Vector index unavailable, scanning examples", map[string]interface{}{
			"index": n.cfg.IndexName,
			"error": err.Error(),
		})
		return n.scanSearch(ctx, vector, topK)
	}

	scored := make([]Scored, 0, len(rows))
	for _, row := range rows {
		score, _ := row["score"].(float64)
		scored = append(scored, Scored{Example: exampleFromRow(row), Score: score})
	}
	return scored, nil
}

// scanSearch scores every stored example in process
func (n *Neo4jIndex) scanSearch(ctx context.Context, vector []float32, topK int) ([]Scored, error) {
	query := fmt.Sprintf(
		"MATCH (e:%s) RETURN e.id AS id, e.question AS question, e.cypher AS cypher, "+
			"e.category AS category, e.addedAt AS addedAt, e.embedding AS embedding",
		n.cfg.NodeLabel,
	)
	rows, err := n.client.ExecuteQuery(ctx, query, nil, n.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("scanning examples: %w", err)
	}

	scored := make([]Scored, 0, len(rows))
	for _, row := range rows {
		example := exampleFromRow(row)
		example.Embedding = vectorFromRow(row["embedding"])
		scored = append(scored, Scored{Example: example, Score: cosine(vector, example.Embedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].AddedAt.After(scored[j].AddedAt)
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func exampleFromRow(row map[string]any) Example {
	example := Example{}
	example.ID, _ = row["id"].(string)
	example.Question, _ = row["question"].(string)
	example.Cypher, _ = row["cypher"].(string)
	example.Category, _ = row["category"].(string)
	if millis, ok := row["addedAt"].(int64); ok {
		example.AddedAt = time.UnixMilli(millis)
	}
	return example
}

func vectorFromRow(value any) []float32 {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	vector := make([]float32, 0, len(items))
	for _, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil
		}
		vector = append(vector, float32(f))
	}
	return vector
}

func toFloat64s(vector []float32) []float64 {
	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = float64(v)
	}
	return out
}

func isVectorIndexUnavailable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "ProcedureNotFound") ||
		strings.Contains(msg, "There is no such vector schema index") ||
		strings.Contains(msg, "There is no procedure")
}
