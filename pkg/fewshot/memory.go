package fewshot

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index. Useful for tests and for deployments
// without a vector-capable database.
type MemoryIndex struct {
	mu       sync.RWMutex
	examples []Example
}

// NewMemoryIndex creates an empty in-memory index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add implements Index.Add
func (m *MemoryIndex) Add(_ context.Context, example Example) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.examples = append(m.examples, example)
	return nil
}

// Len returns the number of stored examples
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.examples)
}

// Search implements Index.Search
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int) ([]Scored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if topK <= 0 || len(m.examples) == 0 {
		return nil, nil
	}

	scored := make([]Scored, 0, len(m.examples))
	for _, example := range m.examples {
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
