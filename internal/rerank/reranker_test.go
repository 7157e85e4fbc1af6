package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

type stubScorer struct {
	scores map[string]float64
	err    error
	delay  time.Duration
}

func (s *stubScorer) Score(ctx context.Context, query, passage string) (float64, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if s.err != nil {
		return 0, s.err
	}
	return s.scores[passage], nil
}

func candidates() []*models.SearchResult {
	return []*models.SearchResult{
		{Chunk: &models.Chunk{ID: "a", Content: "passage a"}, FusedScore: 0.9},
		{Chunk: &models.Chunk{ID: "b", Content: "passage b"}, FusedScore: 0.6},
		{Chunk: &models.Chunk{ID: "c", Content: "passage c"}, FusedScore: 0.3},
	}
}

func TestRerankBlendsScores(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{
		"passage a": 0.1,
		"passage b": 0.2,
		"passage c": 1.0,
	}}
	r := NewReranker(scorer, time.Second, 0.3, 0.7, nil)

	got, err := r.Rerank(context.Background(), "q", candidates(), 3)
	if err != nil {
		t.Fatal(err)
	}
	// c: 0.3*0.3 + 1.0*0.7 = 0.79 beats a: 0.9*0.3 + 0.1*0.7 = 0.34.
	if got[0].Chunk.ID != "c" {
		t.Errorf("expected c first after reranking, got %s", got[0].Chunk.ID)
	}
	if got[0].FinalScore != 0.3*0.3+1.0*0.7 {
		t.Errorf("unexpected blended score %f", got[0].FinalScore)
	}
	if got[0].RerankScore != 1.0 {
		t.Errorf("rerank score not recorded, got %f", got[0].RerankScore)
	}
	for i, r := range got {
		if r.Rank != i+1 {
			t.Errorf("rank %d at position %d", r.Rank, i)
		}
	}
}

func TestRerankFallbackOnScorerError(t *testing.T) {
	scorer := &stubScorer{err: errors.New("scoring service down")}
	r := NewReranker(scorer, time.Second, 0.3, 0.7, nil)

	got, err := r.Rerank(context.Background(), "q", candidates(), 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	// Fallback invariant: output ordered by fused score alone.
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if got[i].Chunk.ID != id {
			t.Errorf("fallback order position %d: expected %s, got %s", i, id, got[i].Chunk.ID)
		}
	}
}

func TestRerankFallbackOnTimeout(t *testing.T) {
	scorer := &stubScorer{delay: time.Second, scores: map[string]float64{}}
	r := NewReranker(scorer, 20*time.Millisecond, 0.3, 0.7, nil)

	got, err := r.Rerank(context.Background(), "q", candidates(), 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
	if len(got) != 3 {
		t.Errorf("timeout fallback should still return usable results, got %d", len(got))
	}
	if got[0].Chunk.ID != "a" {
		t.Errorf("expected fused ordering after timeout, got %s first", got[0].Chunk.ID)
	}
}

func TestRerankNilScorerFallsBack(t *testing.T) {
	r := NewReranker(nil, time.Second, 0.3, 0.7, nil)
	got, err := r.Rerank(context.Background(), "q", candidates(), 2)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(got) != 2 {
		t.Errorf("topK should truncate the fallback, got %d", len(got))
	}
}

func TestRerankTruncatesToTopK(t *testing.T) {
	scorer := &stubScorer{scores: map[string]float64{
		"passage a": 0.9,
		"passage b": 0.8,
		"passage c": 0.7,
	}}
	r := NewReranker(scorer, time.Second, 0.3, 0.7, nil)
	got, err := r.Rerank(context.Background(), "q", candidates(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 results, got %d", len(got))
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := NewReranker(nil, time.Second, 0.3, 0.7, nil)
	got, err := r.Rerank(context.Background(), "q", nil, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty output, got %d", len(got))
	}
}
