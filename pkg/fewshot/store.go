package fewshot

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/tagus/graphmind/pkg/interfaces"
	"github.com/tagus/graphmind/pkg/logging"
)

// StoreConfig configures retrieval behavior
type StoreConfig struct {
	// TopK is the number of examples retrieved per question
	TopK int
	// MinSimilarity drops results scoring below the threshold; zero keeps all
	MinSimilarity float64
}

// Store pairs an embedder with an example index. Questions are embedded at
// ingest; retrieval embeds the incoming question and searches by cosine
// similarity.
type Store struct {
	embedder interfaces.Embedder
	index    Index
	cfg      StoreConfig
	logger   logging.Logger
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithStoreLogger sets the logger for the store
func WithStoreLogger(logger logging.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a store over the given embedder and index
func NewStore(embedder interfaces.Embedder, index Index, cfg StoreConfig, options ...StoreOption) *Store {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}

	store := &Store{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logging.New(),
	}
	for _, option := range options {
		option(store)
	}
	return store
}

// AddExample embeds and stores one question/query pair, assigning it an ID
// and timestamp.
func (s *Store) AddExample(ctx context.Context, question, cypher, category string) (Example, error) {
	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Example{}, fmt.Errorf("embedding example question: %w", err)
	}

	example := Example{
		ID:        uuid.New().String(),
		Question:  question,
		Cypher:    cypher,
		Category:  category,
		Embedding: embedding,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.index.Add(ctx, example); err != nil {
		return Example{}, err
	}

	s.logger.Debug(ctx, "Stored query example", map[string]interface{}{
		"id":       example.ID,
		"category": category,
	})
	return example, nil
}

// Retrieve returns the examples most similar to the question. An empty
// index yields an empty result, not an error; embedding or index failures
// wrap ErrRetrievalUnavailable so callers can degrade to zero-shot
// generation.
func (s *Store) Retrieve(ctx context.Context, question string) ([]Scored, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding question: %v", ErrRetrievalUnavailable, err)
	}

	results, err := s.index.Search(ctx, vector, s.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	if s.cfg.MinSimilarity > 0 {
		kept := results[:0]
		for _, result := range results {
			if result.Score >= s.cfg.MinSimilarity {
				kept = append(kept, result)
			}
		}
		results = kept
	}

	s.logger.Debug(ctx, "Retrieved query examples", map[string]interface{}{
		"count": len(results),
	})
	return results, nil
}

// seedEntry is one example in a seed file
type seedEntry struct {
	Question string `yaml:"question"`
	Cypher   string `yaml:"cypher"`
	Category string `yaml:"category"`
}

// SeedFromFile loads question/query pairs from a YAML file and stores each
// one. Returns the number of examples added. An empty path is a no-op.
func (s *Store) SeedFromFile(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading example seed file: %w", err)
	}

	var entries []seedEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parsing example seed file: %w", err)
	}

	added := 0
	for _, entry := range entries {
		if entry.Question == "" || entry.Cypher == "" {
			continue
		}
		if _, err := s.AddExample(ctx, entry.Question, entry.Cypher, entry.Category); err != nil {
			return added, err
		}
		added++
	}

	s.logger.Info(ctx, "Seeded query examples", map[string]interface{}{
		"path":  path,
		"count": added,
	})
	return added, nil
}
