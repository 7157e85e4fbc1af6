// Package embedding provides the embedding capability interface and caching.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrUnavailable indicates the embedding capability errored twice in a row.
// Callers must fall back to keyword-only scoring rather than abort the query.
var ErrUnavailable = errors.New("embedding capability unavailable")

// Embedder produces vector embeddings for text. Implementations must be
// deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashText returns the content hash used as cache key for text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
