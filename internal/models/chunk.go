// Package models defines core data structures for note chunks, queries, and results.
package models

import (
	"strings"
	"time"
)

// Chunk is a retrievable unit of note text with its own embedding.
// Chunks are supplied by the ingestion collaborator and are immutable once
// created; re-ingestion replaces a chunk wholesale under the same ID.
type Chunk struct {
	ID          string                 `json:"id" db:"id"`
	NoteID      string                 `json:"note_id" db:"note_id"`
	Content     string                 `json:"content" db:"content"`
	WordCount   int                    `json:"word_count" db:"word_count"`
	HeadingPath []string               `json:"heading_path,omitempty" db:"heading_path"`
	Topic       string                 `json:"topic,omitempty" db:"topic"`
	Tags        []string               `json:"tags,omitempty" db:"tags"`
	Embedding   []float32              `json:"-" db:"-"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// Heading returns the joined heading path ("Note > Section > Subsection").
func (c *Chunk) Heading() string {
	return strings.Join(c.HeadingPath, " > ")
}

// ChunkInput is the payload the ingestion collaborator delivers for a chunk.
type ChunkInput struct {
	ID          string                 `json:"id,omitempty"`
	NoteID      string                 `json:"note_id"`
	Content     string                 `json:"content"`
	HeadingPath []string               `json:"heading_path,omitempty"`
	Topic       string                 `json:"topic,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
