package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"

	"github.com/hyperjump/kotae/internal/models"
)

// Hit is a single corpus index hit with the raw BM25 score.
type Hit struct {
	ID    string
	Score float64
}

// CorpusIndex is the full-corpus keyword index backed by Bleve. It supplies
// lexical candidates when no filtered candidate set narrows the search, and
// document frequencies for filter relevance scoring.
type CorpusIndex struct {
	index bleve.Index
}

type indexedChunk struct {
	Content string `json:"content"`
	Heading string `json:"heading"`
}

// NewCorpusIndex creates or opens a Bleve index at path. An existing index is
// reused so unchanged chunks are not re-indexed; remove the directory to force
// a rebuild after a mapping change.
func NewCorpusIndex(path string) (*CorpusIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so exact terms
	// match without stem collisions.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("heading", textFieldMapping)
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &CorpusIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &CorpusIndex{index: index}, nil
}

// Index indexes a chunk by ID.
func (c *CorpusIndex) Index(ctx context.Context, chunk *models.Chunk) error {
	return c.index.Index(chunk.ID, indexedChunk{
		Content: chunk.Content,
		Heading: chunk.Heading(),
	})
}

// Search runs a match query over content and heading, returning up to limit hits.
func (c *CorpusIndex) Search(ctx context.Context, query string, limit int) ([]*Hit, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*Hit, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &Hit{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes a chunk from the index.
func (c *CorpusIndex) Delete(ctx context.Context, id string) error {
	return c.index.Delete(id)
}

// DocCount returns the number of indexed chunks.
func (c *CorpusIndex) DocCount() (uint64, error) {
	return c.index.DocCount()
}

// Close closes the underlying index.
func (c *CorpusIndex) Close() error {
	return c.index.Close()
}
