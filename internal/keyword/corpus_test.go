package keyword

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func newTestCorpus(t *testing.T) *CorpusIndex {
	t.Helper()
	c, err := NewCorpusIndex(filepath.Join(t.TempDir(), "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCorpusIndexSearch(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()

	chunks := []*models.Chunk{
		{ID: "c1", Content: "notes about database indexing strategies"},
		{ID: "c2", Content: "gardening in early spring"},
		{ID: "c3", Content: "database migration checklist", HeadingPath: []string{"Ops", "Database"}},
	}
	for _, chunk := range chunks {
		if err := c.Index(ctx, chunk); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := c.Search(ctx, "database", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	for _, h := range hits {
		if h.ID == "c2" {
			t.Error("gardening chunk should not match")
		}
		if h.Score <= 0 {
			t.Errorf("hit %s has non-positive score", h.ID)
		}
	}

	count, err := c.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("expected 3 indexed chunks, got %d", count)
	}
}

func TestCorpusIndexHeadingSearchable(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()
	chunk := &models.Chunk{
		ID:          "c1",
		Content:     "various unrelated body text",
		HeadingPath: []string{"Projects", "Kubernetes"},
	}
	if err := c.Index(ctx, chunk); err != nil {
		t.Fatal(err)
	}
	hits, err := c.Search(ctx, "kubernetes", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("heading terms should be searchable, got %d hits", len(hits))
	}
}

func TestCorpusIndexDelete(t *testing.T) {
	c := newTestCorpus(t)
	ctx := context.Background()
	if err := c.Index(ctx, &models.Chunk{ID: "c1", Content: "ephemeral chunk"}); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	hits, err := c.Search(ctx, "ephemeral", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("deleted chunk should not match, got %d hits", len(hits))
	}
}

func TestCorpusIndexReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	first, err := NewCorpusIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Index(context.Background(), &models.Chunk{ID: "c1", Content: "persistent chunk"}); err != nil {
		t.Fatal(err)
	}
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewCorpusIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	count, err := second.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("reopened index should keep documents, got %d", count)
	}
}
