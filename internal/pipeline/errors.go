// Package pipeline runs queries through retrieval, ranking, and synthesis.
package pipeline

import "errors"

// ErrNoSearchPath indicates both the embedding-backed and keyword search
// paths failed for a query. This is the only fatal retrieval error; every
// single-stage failure degrades to the next-cheapest available stage.
var ErrNoSearchPath = errors.New("all search paths unavailable")

// NoResultsSuggestion is surfaced with an empty result set instead of an error.
const NoResultsSuggestion = "No relevant information found in your notes. Try rephrasing the question or using different terms."
