package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
)

// HTTPEmbedder calls an external embedding service over HTTP. The service is
// expected to accept {"text": ...} and return {"embedding": [...]}.
type HTTPEmbedder struct {
	endpoint   string
	dimensions int
	client     *http.Client
}

// NewHTTPEmbedder creates an embedder against endpoint with the given
// dimensions and per-call timeout.
func NewHTTPEmbedder(endpoint string, dimensions int, timeout time.Duration) *HTTPEmbedder {
	return &HTTPEmbedder{
		endpoint:   endpoint,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests an embedding for text. The returned vector is normalized to
// unit length so inner product equals cosine similarity.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed request returned status %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(out.Embedding), e.dimensions)
	}
	utils.NormalizeL2(out.Embedding)
	return out.Embedding, nil
}

// Dimensions returns the embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}
