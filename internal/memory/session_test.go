package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/classify"
	"github.com/hyperjump/kotae/internal/models"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(50)
	for i := 0; i < 55; i++ {
		h.Append(ConversationTurn{Query: fmt.Sprintf("q%d", i)})
	}
	if h.Len() != 50 {
		t.Fatalf("expected 50 turns, got %d", h.Len())
	}
	turns := h.Turns()
	if turns[0].Query != "q5" {
		t.Errorf("oldest turns should be evicted first, got %s", turns[0].Query)
	}
	if turns[len(turns)-1].Query != "q54" {
		t.Errorf("newest turn should be last, got %s", turns[len(turns)-1].Query)
	}
}

func TestHistoryOrderPreserved(t *testing.T) {
	h := NewHistory(3)
	for _, q := range []string{"a", "b", "c"} {
		h.Append(ConversationTurn{Query: q})
	}
	turns := h.Turns()
	for i, want := range []string{"a", "b", "c"} {
		if turns[i].Query != want {
			t.Errorf("position %d: expected %s, got %s", i, want, turns[i].Query)
		}
	}
}

func TestSessionFlowTransitions(t *testing.T) {
	s := NewSession("s1", 50, 5)

	// First topic observed: still exploring.
	if got := s.Observe(classify.TopicPhilosophy); got != FlowExploring {
		t.Errorf("first topic should leave the session exploring, got %s", got)
	}
	// Same topic again: drilling down.
	if got := s.Observe(classify.TopicPhilosophy); got != FlowDrillingDown {
		t.Errorf("repeat topic should be drilling-down, got %s", got)
	}
	// Different topic: switching, counter increments.
	if got := s.Observe(classify.TopicBusiness); got != FlowSwitchingTopic {
		t.Errorf("new topic should be switching-topic, got %s", got)
	}
	ctx := s.Context()
	if ctx.ContextSwitches != 1 {
		t.Errorf("expected 1 context switch, got %d", ctx.ContextSwitches)
	}
	if ctx.Topic != classify.TopicBusiness {
		t.Errorf("context topic should follow the switch, got %s", ctx.Topic)
	}
	// Follow-up on the new topic drills down again.
	if got := s.Observe(classify.TopicBusiness); got != FlowDrillingDown {
		t.Errorf("follow-up after switch should be drilling-down, got %s", got)
	}
}

func TestSessionTopicSwitchScenario(t *testing.T) {
	s := NewSession("s1", 50, 5)
	s.Observe(classify.TopicPhilosophy)
	flow := s.Observe(classify.TopicBusiness)
	if flow != FlowSwitchingTopic {
		t.Errorf("philosophy to business should switch topics, got %s", flow)
	}
	if s.Context().ContextSwitches != 1 {
		t.Errorf("switch counter should be 1, got %d", s.Context().ContextSwitches)
	}
}

func TestSessionRecordTurn(t *testing.T) {
	s := NewSession("s1", 50, 2)
	results := []*models.SearchResult{
		{Chunk: &models.Chunk{ID: "a"}},
		{Chunk: &models.Chunk{ID: "b"}},
		{Chunk: &models.Chunk{ID: "c"}},
	}
	s.RecordTurn(ConversationTurn{
		Query:       "profiling go services",
		Timestamp:   time.Now(),
		ResultCount: 3,
	}, results)

	ctx := s.Context()
	if len(ctx.LastResults) != 2 {
		t.Errorf("recent results should be capped at 2, got %d", len(ctx.LastResults))
	}
	interests := make(map[string]bool)
	for _, tok := range ctx.Interests {
		interests[tok] = true
	}
	for _, want := range []string{"profiling", "go", "services"} {
		if !interests[want] {
			t.Errorf("interest %q not accumulated, have %v", want, ctx.Interests)
		}
	}
	if s.TurnCount() != 1 {
		t.Errorf("expected 1 turn, got %d", s.TurnCount())
	}
}

func TestRegistrySessions(t *testing.T) {
	r := NewRegistry(50, 5)
	created := r.GetOrCreate("")
	if created.ID == "" {
		t.Fatal("expected generated session ID")
	}
	if got := r.GetOrCreate(created.ID); got != created {
		t.Error("GetOrCreate should return the same session for the same ID")
	}
	if r.Get("nope") != nil {
		t.Error("unknown session should be nil")
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 session, got %d", r.Len())
	}
}
