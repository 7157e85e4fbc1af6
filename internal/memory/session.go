package memory

import (
	"sync"

	"github.com/hyperjump/kotae/internal/classify"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// FlowState is the conversation-flow state of a session.
type FlowState string

const (
	// FlowExploring is the initial state before any topic is established.
	FlowExploring FlowState = "exploring"
	// FlowDrillingDown indicates a follow-up on the same topic.
	FlowDrillingDown FlowState = "drilling-down"
	// FlowSwitchingTopic indicates a turn whose topic differs from the prior turn's.
	FlowSwitchingTopic FlowState = "switching-topic"
)

// QueryContext is the active conversation state for one session. It is
// mutated once per turn by the orchestrator and never shared across sessions.
type QueryContext struct {
	Topic           classify.Topic         `json:"topic"`
	Interests       []string               `json:"interests"`
	LastResults     []*models.SearchResult `json:"last_results,omitempty"`
	Flow            FlowState              `json:"conversation_flow"`
	ContextSwitches int                    `json:"context_switches"`
}

// Session owns one conversation's context and bounded history. Methods are
// safe for concurrent use; each turn's transition is applied atomically.
type Session struct {
	ID            string
	mu            sync.Mutex
	topic         classify.Topic
	interests     map[string]struct{}
	lastResults   []*models.SearchResult
	flow          FlowState
	switches      int
	history       *History
	recentResults int
}

// NewSession creates a session in the exploring state.
func NewSession(id string, capacity, recentResults int) *Session {
	if recentResults <= 0 {
		recentResults = 5
	}
	return &Session{
		ID:            id,
		interests:     make(map[string]struct{}),
		flow:          FlowExploring,
		history:       NewHistory(capacity),
		recentResults: recentResults,
	}
}

// Observe applies the flow transition for a newly classified topic and
// returns the resulting state. A topic differing from the established one
// transitions to switching-topic and increments the context-switch counter;
// the same topic transitions to drilling-down. The first observed topic
// leaves the session exploring.
func (s *Session) Observe(topic classify.Topic) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.topic == "":
		s.flow = FlowExploring
	case topic != s.topic:
		s.flow = FlowSwitchingTopic
		s.switches++
	default:
		s.flow = FlowDrillingDown
	}
	s.topic = topic
	return s.flow
}

// RecordTurn appends a completed turn, retains the most recent results, and
// accumulates the query's tokens as user-interest terms.
func (s *Session) RecordTurn(turn ConversationTurn, results []*models.SearchResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history.Append(turn)
	if len(results) > s.recentResults {
		results = results[:s.recentResults]
	}
	s.lastResults = results
	for _, tok := range utils.Tokenize(turn.Query) {
		s.interests[tok] = struct{}{}
	}
}

// Context returns a snapshot of the session's query context.
func (s *Session) Context() QueryContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	interests := make([]string, 0, len(s.interests))
	for tok := range s.interests {
		interests = append(interests, tok)
	}
	return QueryContext{
		Topic:           s.topic,
		Interests:       interests,
		LastResults:     s.lastResults,
		Flow:            s.flow,
		ContextSwitches: s.switches,
	}
}

// Turns returns the session's history oldest first.
func (s *Session) Turns() []ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Turns()
}

// TurnCount returns the number of stored turns.
func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}
