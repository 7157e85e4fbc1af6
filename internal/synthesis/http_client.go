package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HTTPSynthesizer calls an external text-generation service. The service
// accepts {"model": ..., "prompt": ...} and returns {"text": ...}.
type HTTPSynthesizer struct {
	endpoint string
	model    string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPSynthesizer creates a synthesizer with a per-call timeout.
func NewHTTPSynthesizer(endpoint, model string, timeout time.Duration) *HTTPSynthesizer {
	return &HTTPSynthesizer{
		endpoint: endpoint,
		model:    model,
		timeout:  timeout,
		client:   &http.Client{},
	}
}

type generateRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate submits the prompt and returns the generated text. Deadline
// overruns surface ErrTimeout; other transport failures surface ErrUnavailable.
func (s *HTTPSynthesizer) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{Model: s.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return out.Text, nil
}
