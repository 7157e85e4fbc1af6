// Package vector provides vector index and similarity search.
package vector

import "context"

// Index defines vector storage and similarity search.
type Index interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns at most k hits ordered by descending cosine similarity.
	// A non-empty candidateIDs restricts the search to those entries; an empty
	// slice searches the full index.
	Search(ctx context.Context, query []float32, candidateIDs []string, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single vector search hit (ID is the chunk ID).
type Result struct {
	ID    string
	Score float64 // cosine similarity for normalized vectors, clamped to [0,1]
}
