// Package ingest registers chunks delivered by the ingestion collaborator
// into storage, the corpus index, and the vector index.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// ErrEmptyContent is returned for chunks with no text content.
var ErrEmptyContent = errors.New("chunk content is empty")

// Ingestor registers pre-extracted chunks. It does not parse raw files;
// chunks arrive from the ingestion collaborator with text and metadata
// already split out.
type Ingestor struct {
	store       storage.Store
	cache       *embedding.Cache
	vectorIndex vector.Index
	corpus      *keyword.CorpusIndex
	logger      *zap.Logger
}

// NewIngestor creates an ingestor with the given dependencies.
func NewIngestor(store storage.Store, cache *embedding.Cache, vectorIndex vector.Index, corpus *keyword.CorpusIndex, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		store:       store,
		cache:       cache,
		vectorIndex: vectorIndex,
		corpus:      corpus,
		logger:      logger,
	}
}

// Ingest stores one chunk and registers it in both indices. Re-ingesting an
// existing ID replaces the chunk wholesale. Embedding failure is not fatal:
// the chunk is stored and keyword-searchable, and only the vector index skips
// it until re-ingestion.
func (i *Ingestor) Ingest(ctx context.Context, input *models.ChunkInput) (*models.Chunk, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrEmptyContent
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}

	now := time.Now()
	chunk := &models.Chunk{
		ID:          input.ID,
		NoteID:      input.NoteID,
		Content:     input.Content,
		WordCount:   len(strings.Fields(input.Content)),
		HeadingPath: input.HeadingPath,
		Topic:       input.Topic,
		Tags:        input.Tags,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	vec, err := i.cache.GetOrCompute(ctx, chunk.Content)
	if err != nil {
		i.logger.Warn("embedding unavailable during ingest, chunk stored without vector",
			zap.String("chunk_id", chunk.ID), zap.Error(err))
	} else {
		chunk.Embedding = vec
	}

	if err := i.store.PutChunk(ctx, chunk); err != nil {
		return nil, fmt.Errorf("failed to store chunk: %w", err)
	}
	if err := i.corpus.Index(ctx, chunk); err != nil {
		return nil, fmt.Errorf("failed to index chunk in corpus: %w", err)
	}
	// Drop any prior vector for this ID so a replaced chunk cannot keep
	// matching its old content.
	if err := i.vectorIndex.Remove(ctx, []string{chunk.ID}); err != nil {
		return nil, fmt.Errorf("failed to drop stale vector: %w", err)
	}
	if chunk.Embedding != nil {
		if err := i.vectorIndex.Add(ctx, []string{chunk.ID}, [][]float32{chunk.Embedding}); err != nil {
			return nil, fmt.Errorf("failed to index chunk in vector index: %w", err)
		}
	}

	i.logger.Debug("chunk ingested",
		zap.String("chunk_id", chunk.ID),
		zap.String("note_id", chunk.NoteID),
		zap.Int("words", chunk.WordCount),
		zap.Bool("embedded", chunk.Embedding != nil))
	return chunk, nil
}

// Delete removes a chunk from storage and both indices.
func (i *Ingestor) Delete(ctx context.Context, id string) error {
	if err := i.store.DeleteChunk(ctx, id); err != nil {
		return fmt.Errorf("failed to delete chunk: %w", err)
	}
	if err := i.corpus.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to remove chunk from corpus: %w", err)
	}
	if err := i.vectorIndex.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to remove chunk from vector index: %w", err)
	}
	i.logger.Debug("chunk deleted", zap.String("chunk_id", id))
	return nil
}

// Rebuild reloads the vector index from stored chunk embeddings, used at
// startup when no persisted index exists.
func (i *Ingestor) Rebuild(ctx context.Context) (int, error) {
	chunks, err := i.store.AllChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load chunks: %w", err)
	}
	var ids []string
	var vectors [][]float32
	for _, c := range chunks {
		if c.Embedding == nil {
			continue
		}
		ids = append(ids, c.ID)
		vectors = append(vectors, c.Embedding)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := i.vectorIndex.Add(ctx, ids, vectors); err != nil {
		return 0, fmt.Errorf("failed to rebuild vector index: %w", err)
	}
	return len(ids), nil
}
