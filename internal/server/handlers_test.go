package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/classify"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/filter"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/quality"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

func newTestServer(t *testing.T) (*Server, *embedding.MockEmbedder) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := storage.NewSQLiteStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	mock := embedding.NewMockEmbedder(8)
	cache := embedding.NewCache(mock, 100, time.Hour, nil)
	classifier, err := classify.NewClassifier(ctx, cache, 0.3, nil)
	if err != nil {
		t.Fatal(err)
	}
	vectorIndex, err := vector.NewMemoryIndex(8)
	if err != nil {
		t.Fatal(err)
	}
	corpus, err := keyword.NewCorpusIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = corpus.Close() })

	logger := zap.NewNop()
	recorder := quality.NewRecorder(16, logger)
	t.Cleanup(recorder.Close)
	sessions := memory.NewRegistry(50, 5)
	ingestor := ingest.NewIngestor(store, cache, vectorIndex, corpus, logger)

	cfg := &config.SearchConfig{
		TopKCandidates:  100,
		VectorWeight:    0.7,
		KeywordWeight:   0.3,
		PhraseBonus:     0.5,
		HeadingBonus:    0.2,
		TopicThreshold:  0.3,
		FilterThreshold: 0.25,
	}
	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Store:       store,
		Cache:       cache,
		VectorIndex: vectorIndex,
		Corpus:      corpus,
		Scorer:      keyword.NewScorer(cfg.PhraseBonus, cfg.HeadingBonus),
		Classifier:  classifier,
		Filter:      filter.New(cfg.FilterThreshold),
		Sessions:    sessions,
		Recorder:    recorder,
		Config:      cfg,
		Logger:      logger,
	})

	srv := NewServer(orchestrator, ingestor, store, cache, vectorIndex, corpus,
		sessions, recorder, &config.ServerConfig{Host: "127.0.0.1", Port: 0}, logger)
	return srv, mock
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestIngestAndGetChunk(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{
		NoteID:  "n1",
		Content: "notes on sqlite write-ahead logging",
		Tags:    []string{"database"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	decodeBody(t, rec, &created)
	if created["id"] == "" {
		t.Fatal("expected generated chunk ID")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chunks/"+created["id"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var chunk models.Chunk
	decodeBody(t, rec, &chunk)
	if chunk.Content != "notes on sqlite write-ahead logging" {
		t.Errorf("unexpected content %q", chunk.Content)
	}
}

func TestListChunks(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, content := range []string{"first note chunk", "second note chunk", "third note chunk"} {
		rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{NoteID: "n1", Content: content})
		if rec.Code != http.StatusCreated {
			t.Fatalf("ingest failed: %d", rec.Code)
		}
	}

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/chunks?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listing struct {
		Chunks []models.Chunk `json:"chunks"`
		Limit  int            `json:"limit"`
	}
	decodeBody(t, rec, &listing)
	if len(listing.Chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(listing.Chunks))
	}
	if listing.Limit != 2 {
		t.Errorf("limit = %d, want 2", listing.Limit)
	}
}

func TestIngestRejectsEmptyContent(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{NoteID: "n1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteChunk(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{
		NoteID:  "n1",
		Content: "ephemeral note chunk",
	})
	var created map[string]string
	decodeBody(t, rec, &created)

	rec = doRequest(t, srv, http.MethodDelete, "/api/v1/chunks/"+created["id"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodGet, "/api/v1/chunks/"+created["id"], nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted chunk should be gone, got %d", rec.Code)
	}
}

func TestAskEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{
		NoteID:  "n1",
		Content: "database indexing strategies and query planning",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest failed: %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/ask", models.AskQuery{
		Query: "database indexing strategies and query planning",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.AskResponse
	decodeBody(t, rec, &resp)
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.SessionID == "" {
		t.Error("expected assigned session ID")
	}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/ask", models.AskQuery{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	rec = doRequest(t, srv, http.MethodPost, "/api/v1/ask", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body should be 400, got %d", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var created map[string]string
	decodeBody(t, rec, &created)
	if created["session_id"] == "" {
		t.Fatal("expected session ID")
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/"+created["session_id"]+"/context", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/sessions/no-such-session/context", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session should be 404, got %d", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/chunks", models.ChunkInput{
		NoteID:  "n1",
		Content: "status endpoint fixture chunk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("ingest failed: %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status map[string]interface{}
	decodeBody(t, rec, &status)
	if status["chunks"].(float64) != 1 {
		t.Errorf("expected 1 chunk, got %v", status["chunks"])
	}
	if _, ok := status["embedding_cache"]; !ok {
		t.Error("expected embedding_cache section")
	}
}

func TestQualityEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/quality", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var agg quality.Aggregate
	decodeBody(t, rec, &agg)
	if agg.Queries != 0 {
		t.Errorf("fresh recorder should report 0 queries, got %d", agg.Queries)
	}
}
