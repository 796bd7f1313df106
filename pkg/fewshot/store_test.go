package fewshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tagus/graphmind/pkg/logging"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if vector, ok := s.vectors[text]; ok {
		return vector, nil
	}
	return []float32{1, 0, 0}, nil
}

func TestMemoryIndexOrdering(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	examples := []Example{
		{ID: "far", Embedding: []float32{0, 1, 0}, AddedAt: base},
		{ID: "close-old", Embedding: []float32{1, 0, 0}, AddedAt: base},
		{ID: "close-new", Embedding: []float32{1, 0, 0}, AddedAt: base.Add(time.Hour)},
	}
	for _, example := range examples {
		if err := index.Add(ctx, example); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	results, err := index.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Equal scores break toward the most recent example
	if results[0].ID != "close-new" || results[1].ID != "close-old" {
		t.Errorf("order = [%s %s], want [close-new close-old]", results[0].ID, results[1].ID)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	store := NewStore(&stubEmbedder{}, NewMemoryIndex(), StoreConfig{TopK: 5}, WithStoreLogger(logging.NoOp()))

	results, err := store.Retrieve(context.Background(), "who knows alice?")
	if err != nil {
		t.Fatalf("Retrieve on empty index: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want 0", len(results))
	}
}

func TestRetrieveMinSimilarity(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"strong match": {1, 0, 0},
		"weak match":   {0.2, 0.98, 0},
		"the question": {1, 0, 0},
	}}

	index := NewMemoryIndex()
	store := NewStore(embedder, index, StoreConfig{TopK: 5, MinSimilarity: 0.9}, WithStoreLogger(logging.NoOp()))

	for _, question := range []string{"strong match", "weak match"} {
		if _, err := store.AddExample(ctx, question, "MATCH (n) RETURN n", ""); err != nil {
			t.Fatalf("AddExample: %v", err)
		}
	}

	results, err := store.Retrieve(ctx, "the question")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Question != "strong match" {
		t.Errorf("results = %+v, want only the strong match", results)
	}
}

func TestRetrieveUnavailable(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("embedding api down")}
	store := NewStore(embedder, NewMemoryIndex(), StoreConfig{}, WithStoreLogger(logging.NoOp()))

	_, err := store.Retrieve(context.Background(), "anything")
	if !errors.Is(err, ErrRetrievalUnavailable) {
		t.Errorf("error = %v, want ErrRetrievalUnavailable", err)
	}
}

func TestSeedFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "examples.yaml")
	content := `- question: "Who does Alice know?"
  cypher: "MATCH (a:Person {name: 'Alice'})-[:KNOWS]->(b) RETURN b.name"
  category: relationships
- question: ""
  cypher: "skipped, no question"
- question: "How many people are there?"
  cypher: "MATCH (p:Person) RETURN count(p)"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	index := NewMemoryIndex()
	store := NewStore(&stubEmbedder{}, index, StoreConfig{}, WithStoreLogger(logging.NoOp()))

	added, err := store.SeedFromFile(context.Background(), path)
	if err != nil {
		t.Fatalf("SeedFromFile: %v", err)
	}
	if added != 2 {
		t.Errorf("added = %d, want 2", added)
	}
	if index.Len() != 2 {
		t.Errorf("index holds %d examples, want 2", index.Len())
	}
}

func TestSeedFromFileEmptyPath(t *testing.T) {
	store := NewStore(&stubEmbedder{}, NewMemoryIndex(), StoreConfig{}, WithStoreLogger(logging.NoOp()))
	added, err := store.SeedFromFile(context.Background(), "")
	if err != nil || added != 0 {
		t.Errorf("empty path: added=%d err=%v, want 0, nil", added, err)
	}
}

type fakeGraphClient struct {
	queryFn func(query string, params map[string]any) ([]map[string]any, error)
	writes  []string
}

func (f *fakeGraphClient) ExecuteQuery(_ context.Context, query string, params map[string]any, _ string) ([]map[string]any, error) {
	return f.queryFn(query, params)
}

func (f *fakeGraphClient) ExecuteWrite(_ context.Context, query string, _ map[string]any, _ string) error {
	f.writes = append(f.writes, query)
	return nil
}

func TestNeo4jIndexScanFallback(t *testing.T) {
	client := &fakeGraphClient{
		queryFn: func(query string, params map[string]any) ([]map[string]any, error) {
			if params != nil {
				// First call is the vector index query
				return nil, fmt.Errorf("There is no such vector schema index: query_examples")
			}
			return []map[string]any{
				{
					"id": "a", "question": "q1", "cypher": "MATCH (n) RETURN n",
					"category": "", "addedAt": int64(100),
					"embedding": []any{1.0, 0.0},
				},
				{
					"id": "b", "question": "q2", "cypher": "MATCH (m) RETURN m",
					"category": "", "addedAt": int64(200),
					"embedding": []any{0.0, 1.0},
				},
			}, nil
		},
	}

	index := NewNeo4jIndex(client, Neo4jIndexConfig{Dimensions: 2}, WithIndexLogger(logging.NoOp()))
	results, err := index.Search(context.Background(), []float32{1, 0}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Errorf("results = %+v, want [a]", results)
	}
}

func TestNeo4jIndexAdd(t *testing.T) {
	client := &fakeGraphClient{queryFn: func(string, map[string]any) ([]map[string]any, error) { return nil, nil }}
	index := NewNeo4jIndex(client, Neo4jIndexConfig{Dimensions: 2}, WithIndexLogger(logging.NoOp()))

	err := index.Add(context.Background(), Example{ID: "x", Question: "q", Cypher: "RETURN 1"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(client.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(client.writes))
	}
}
