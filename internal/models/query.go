package models

import (
	"fmt"
	"time"
)

// MetadataFilters narrow the candidate set with strict predicates, applied
// independently of topic scoring.
type MetadataFilters struct {
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	FileTypes []string   `json:"file_types,omitempty"`
	MinWords  int        `json:"min_words,omitempty"`
	MaxWords  int        `json:"max_words,omitempty"`
}

// AskQuery represents one question against the note corpus.
type AskQuery struct {
	Query         string           `json:"query"`
	SessionID     string           `json:"session_id,omitempty"`
	Limit         int              `json:"limit,omitempty"`
	VectorWeight  float64          `json:"vector_weight,omitempty"`
	KeywordWeight float64          `json:"keyword_weight,omitempty"`
	Filters       *MetadataFilters `json:"filters,omitempty"`
	// Synthesize controls whether the ranked evidence is forwarded to the
	// language model for answer synthesis. Defaults to true.
	Synthesize *bool `json:"synthesize,omitempty"`
}

// Validate ensures the query has valid fields and sets defaults.
// Returns an error if the query text is empty; otherwise normalizes the limit
// and the fusion weights (defaults 0.7 vector / 0.3 keyword).
func (q *AskQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.VectorWeight <= 0 && q.KeywordWeight <= 0 {
		q.VectorWeight = 0.7
		q.KeywordWeight = 0.3
	}
	return nil
}

// WantSynthesis reports whether the caller asked for a synthesized answer.
func (q *AskQuery) WantSynthesis() bool {
	if q.Synthesize == nil {
		return true
	}
	return *q.Synthesize
}
