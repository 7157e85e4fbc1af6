// Package storage defines the persistence interface for chunks, cached
// embeddings, and topic centroids.
package storage

import (
	"context"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

// Store defines chunk persistence plus the two tables the pipeline itself
// requires: the embedding-cache store and the topic-centroid table.
type Store interface {
	// Chunk operations. Chunks are immutable; Put replaces wholesale.
	PutChunk(ctx context.Context, chunk *models.Chunk) error
	GetChunk(ctx context.Context, id string) (*models.Chunk, error)
	GetChunks(ctx context.Context, ids []string) ([]*models.Chunk, error)
	ListChunks(ctx context.Context, offset, limit int) ([]*models.Chunk, error)
	AllChunks(ctx context.Context) ([]*models.Chunk, error)
	DeleteChunk(ctx context.Context, id string) error
	CountChunks(ctx context.Context) (int64, error)

	// Embedding cache persistence (content hash -> vector, overwritable, prunable).
	SaveEmbedding(ctx context.Context, hash string, vector []float32, createdAt time.Time) error
	LoadEmbeddings(ctx context.Context, notBefore time.Time) (map[string][]float32, error)
	PruneEmbeddings(ctx context.Context, before time.Time) (int64, error)

	// Topic centroid table (written once at startup, read-only thereafter).
	SaveCentroid(ctx context.Context, topic string, centroid []float32) error
	LoadCentroids(ctx context.Context) (map[string][]float32, error)

	Close() error
}
