package models

// SearchResult is a single ranked hit with the scores accumulated through the
// pipeline. All scores are in [0,1] except KeywordScore before normalization.
type SearchResult struct {
	Chunk        *Chunk  `json:"chunk"`
	VectorScore  float64 `json:"vector_score"`
	KeywordScore float64 `json:"keyword_score"`
	FusedScore   float64 `json:"fused_score"`
	RerankScore  float64 `json:"rerank_score,omitempty"`
	FinalScore   float64 `json:"final_score"`
	Rank         int     `json:"rank"`
}

// AskResponse is the response for one question.
type AskResponse struct {
	Query     string          `json:"query"`
	Answer    string          `json:"answer,omitempty"`
	Results   []*SearchResult `json:"results"`
	Topic     string          `json:"topic"`
	Intent    string          `json:"intent"`
	Flow      string          `json:"conversation_flow,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	QueryTime int64           `json:"query_time_ms"`
	// Partial is true when ranked evidence is returned without a synthesized
	// answer (synthesis unavailable or timed out).
	Partial bool `json:"partial,omitempty"`
	// Degraded lists pipeline stages that were skipped for this query
	// (e.g. "vector", "rerank") because a capability was unavailable.
	Degraded []string `json:"degraded,omitempty"`
	// Suggestion is set when no relevant chunks were found.
	Suggestion string `json:"suggestion,omitempty"`
}
