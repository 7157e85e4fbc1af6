package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
)

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var query models.AskQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if query.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query cannot be empty")
		return
	}
	s.logger.Debug("ask request",
		zap.String("query", query.Query),
		zap.String("session_id", query.SessionID),
		zap.Int("limit", query.Limit))
	response, err := s.orchestrator.Ask(r.Context(), &query)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSearchPath) {
			s.logger.Error("all search paths unavailable", zap.Error(err))
			s.respondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleIngestChunk(w http.ResponseWriter, r *http.Request) {
	var input models.ChunkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("ingest chunk request", zap.String("id", input.ID), zap.String("note_id", input.NoteID))
	chunk, err := s.ingestor.Ingest(r.Context(), &input)
	if err != nil {
		if errors.Is(err, ingest.ErrEmptyContent) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingest failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": chunk.ID, "status": "ingested"})
}

func (s *Server) handleListChunks(w http.ResponseWriter, r *http.Request) {
	offset := parseIntParam(r, "offset", 0)
	limit := parseIntParam(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	chunks, err := s.store.ListChunks(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"chunks": chunks,
		"offset": offset,
		"limit":  limit,
	})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func (s *Server) handleGetChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	chunk, err := s.store.GetChunk(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "chunk not found")
		return
	}
	s.respondJSON(w, http.StatusOK, chunk)
}

func (s *Server) handleDeleteChunk(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete chunk request", zap.String("id", id))
	if err := s.ingestor.Delete(r.Context(), id); err != nil {
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.GetOrCreate("")
	s.respondJSON(w, http.StatusCreated, map[string]string{"session_id": session.ID})
}

func (s *Server) handleSessionContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session := s.sessions.Get(id)
	if session == nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": session.ID,
		"context":    session.Context(),
		"turns":      session.TurnCount(),
	})
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	if s.recorder == nil {
		s.respondError(w, http.StatusNotImplemented, "quality recording not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, s.recorder.Aggregate())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chunkCount, err := s.store.CountChunks(ctx)
	if err != nil {
		s.logger.Error("status: count chunks failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	hits, misses := s.cache.Stats()
	resp := map[string]interface{}{
		"chunks":            chunkCount,
		"vector_index_size": s.vectorIndex.Size(),
		"sessions":          s.sessions.Len(),
		"embedding_cache": map[string]interface{}{
			"entries": s.cache.Len(),
			"hits":    hits,
			"misses":  misses,
		},
	}
	if s.corpus != nil {
		if docCount, err := s.corpus.DocCount(); err == nil {
			resp["corpus_docs"] = docCount
		}
	}
	if s.recorder != nil {
		resp["quality"] = s.recorder.Aggregate()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
