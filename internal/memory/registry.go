package memory

import (
	"sync"

	"github.com/google/uuid"
)

// Registry hands out sessions by ID. The registry itself is shared across
// concurrent queries and locks around the session map; each session is still
// owned by the single conversation using it.
type Registry struct {
	capacity      int
	recentResults int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates a registry; capacity bounds each session's history.
func NewRegistry(capacity, recentResults int) *Registry {
	return &Registry{
		capacity:      capacity,
		recentResults: recentResults,
		sessions:      make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it if absent. An empty id
// creates a fresh session under a new UUID.
func (r *Registry) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		return s
	}
	s := NewSession(id, r.capacity, r.recentResults)
	r.sessions[id] = s
	return s
}

// Get returns the session for id, or nil when unknown.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
