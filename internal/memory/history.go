// Package memory maintains bounded multi-turn conversational context.
package memory

import "time"

// ConversationTurn is one completed query/response exchange.
type ConversationTurn struct {
	Query       string        `json:"query"`
	Response    string        `json:"response"`
	Timestamp   time.Time     `json:"timestamp"`
	ResultCount int           `json:"result_count"`
	Elapsed     time.Duration `json:"elapsed"`
}

// History is a fixed-capacity, order-preserving turn buffer. Appending past
// capacity silently evicts the oldest turn; this is not an error condition.
type History struct {
	turns    []ConversationTurn
	head     int
	size     int
	capacity int
}

// NewHistory creates a history bounded to capacity turns.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 50
	}
	return &History{
		turns:    make([]ConversationTurn, capacity),
		capacity: capacity,
	}
}

// Append records a turn, evicting the oldest when full.
func (h *History) Append(turn ConversationTurn) {
	idx := (h.head + h.size) % h.capacity
	h.turns[idx] = turn
	if h.size < h.capacity {
		h.size++
	} else {
		h.head = (h.head + 1) % h.capacity
	}
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	return h.size
}

// Turns returns the stored turns oldest first.
func (h *History) Turns() []ConversationTurn {
	out := make([]ConversationTurn, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.turns[(h.head+i)%h.capacity]
	}
	return out
}
