package fewshot

import (
	"context"
	"errors"
	"time"
)

// ErrRetrievalUnavailable marks example retrieval failures. Callers degrade
// to zero-shot generation instead of failing the question.
var ErrRetrievalUnavailable = errors.New("fewshot: retrieval unavailable")

// Example is one curated question/query pair. Embedding is the vector of
// the question text, computed once at ingest.
type Example struct {
	ID        string
	Question  string
	Cypher    string
	Category  string
	Embedding []float32
	AddedAt   time.Time
}

// Scored is an example with its similarity to a search vector
type Scored struct {
	Example
	Score float64
}

// Index stores examples and retrieves them by vector similarity. Results
// are ordered by descending similarity; equal scores break toward the most
// recently added example.
type Index interface {
	Add(ctx context.Context, example Example) error
	Search(ctx context.Context, vector []float32, topK int) ([]Scored, error)
}
