package keyword

import (
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestScorePhraseMatch(t *testing.T) {
	s := NewScorer(0.5, 0.2)
	chunk := &models.Chunk{
		ID:      "c1",
		Content: "Notes on performance optimization for production services and related tuning work.",
	}
	score := s.Score("performance optimization", chunk)
	if score < 0.5 {
		t.Errorf("verbatim phrase match should score at least 0.5, got %f", score)
	}
	if score > 1 {
		t.Errorf("score should be clamped to 1, got %f", score)
	}
}

func TestScoreHeadingBonus(t *testing.T) {
	s := NewScorer(0.5, 0.2)
	plain := &models.Chunk{ID: "c1", Content: "some unrelated body text entirely"}
	headed := &models.Chunk{
		ID:          "c2",
		Content:     "some unrelated body text entirely",
		HeadingPath: []string{"Projects", "Performance"},
	}
	if s.Score("performance", headed) <= s.Score("performance", plain) {
		t.Error("heading match should add to the score")
	}
}

func TestScoreNoOverlap(t *testing.T) {
	s := NewScorer(0.5, 0.2)
	chunk := &models.Chunk{ID: "c1", Content: "gardening tips for spring"}
	if got := s.Score("quantum entanglement", chunk); got != 0 {
		t.Errorf("disjoint tokens should score 0, got %f", got)
	}
}

func TestSearchSortedAndPure(t *testing.T) {
	s := NewScorer(0.5, 0.2)
	candidates := []*models.Chunk{
		{ID: "b", Content: "database indexing strategies"},
		{ID: "a", Content: "database indexing strategies"},
		{ID: "c", Content: "cooking pasta"},
	}
	results := s.Search("database indexing", candidates)
	if len(results) != 2 {
		t.Fatalf("zero-score candidates should be dropped, got %d results", len(results))
	}
	// Identical scores: tie broken by chunk ID.
	if results[0].Chunk.ID != "a" || results[1].Chunk.ID != "b" {
		t.Errorf("unexpected order: %s, %s", results[0].Chunk.ID, results[1].Chunk.ID)
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].KeywordScore < results[i].KeywordScore {
			t.Error("results not sorted descending")
		}
	}
}

func TestSearchEmptyInput(t *testing.T) {
	s := NewScorer(0.5, 0.2)
	if results := s.Search("anything", nil); len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
	if results := s.Search("", []*models.Chunk{{ID: "a", Content: "text"}}); len(results) != 0 {
		t.Errorf("empty query should yield no results, got %d", len(results))
	}
}
