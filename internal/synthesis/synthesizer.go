// Package synthesis forwards ranked evidence to the language-model capability
// and assembles the prompt it receives.
package synthesis

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the synthesis capability is unreachable. The caller
// surfaces a partial result (ranked evidence without an answer) instead of failing.
var ErrUnavailable = errors.New("synthesis capability unavailable")

// ErrTimeout indicates the synthesis call exceeded its deadline.
var ErrTimeout = errors.New("synthesis timed out")

// Synthesizer is the LLM synthesis capability: a fully assembled context
// string in, free text back. The call is time-bounded and cancellable by the
// caller's context.
type Synthesizer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
