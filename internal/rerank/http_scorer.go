package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPScorer calls an external cross-encoder service over HTTP. The service
// accepts {"query": ..., "passage": ...} and returns {"score": <float>}.
type HTTPScorer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPScorer creates a scorer against endpoint. Per-call deadlines come
// from the caller's context; the reranker applies its own timeout.
func NewHTTPScorer(endpoint string) *HTTPScorer {
	return &HTTPScorer{endpoint: endpoint, client: &http.Client{}}
}

type scoreRequest struct {
	Query   string `json:"query"`
	Passage string `json:"passage"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score returns the pairwise relevance of passage to query.
func (s *HTTPScorer) Score(ctx context.Context, query, passage string) (float64, error) {
	body, err := json.Marshal(scoreRequest{Query: query, Passage: passage})
	if err != nil {
		return 0, fmt.Errorf("marshal score request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("score request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("score request returned status %d", resp.StatusCode)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode score response: %w", err)
	}
	return out.Score, nil
}
