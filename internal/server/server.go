// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/quality"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Server is the HTTP server for the kotae API.
type Server struct {
	orchestrator *pipeline.Orchestrator
	ingestor     *ingest.Ingestor
	store        storage.Store
	cache        *embedding.Cache
	vectorIndex  vector.Index
	corpus       *keyword.CorpusIndex
	sessions     *memory.Registry
	recorder     *quality.Recorder
	config       *config.ServerConfig
	logger       *zap.Logger
	server       *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	orchestrator *pipeline.Orchestrator,
	ingestor *ingest.Ingestor,
	store storage.Store,
	cache *embedding.Cache,
	vectorIndex vector.Index,
	corpus *keyword.CorpusIndex,
	sessions *memory.Registry,
	recorder *quality.Recorder,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orchestrator,
		ingestor:     ingestor,
		store:        store,
		cache:        cache,
		vectorIndex:  vectorIndex,
		corpus:       corpus,
		sessions:     sessions,
		recorder:     recorder,
		config:       cfg,
		logger:       logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Post("/api/v1/chunks", s.handleIngestChunk)
	r.Get("/api/v1/chunks", s.handleListChunks)
	r.Get("/api/v1/chunks/{id}", s.handleGetChunk)
	r.Delete("/api/v1/chunks/{id}", s.handleDeleteChunk)
	r.Post("/api/v1/sessions", s.handleCreateSession)
	r.Get("/api/v1/sessions/{id}/context", s.handleSessionContext)
	r.Get("/api/v1/quality", s.handleQuality)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
