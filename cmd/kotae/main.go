// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
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
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/synthesis"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "kotae server" from the project dir uses the project's
// config. Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ask":
		runAsk()
	case "ingest":
		runIngest()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Orchestrator,
		components.Ingestor,
		components.Store,
		components.Cache,
		components.VectorIndex,
		components.Corpus,
		components.Sessions,
		components.Recorder,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if cfg.Storage.VectorIndexPath != "" && components.VectorIndex != nil {
		if err := components.VectorIndex.Save(cfg.Storage.VectorIndexPath); err != nil {
			logger.Warn("vector index save failed",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// buildQuery joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session ID for conversational context")
	limit := fs.Int("limit", 10, "number of evidence results")
	synthesize := fs.Bool("synthesize", true, "generate a synthesized answer")
	outputJSON := fs.Bool("json", false, "print the raw JSON response")
	_ = fs.Parse(os.Args[2:])

	queryStr := buildQuery(fs.Args())
	if queryStr == "" {
		fmt.Fprintln(os.Stderr, "Usage: kotae ask [flags] <question>")
		fs.PrintDefaults()
		os.Exit(1)
	}

	query := &models.AskQuery{
		Query:      queryStr,
		SessionID:  *sessionID,
		Limit:      *limit,
		Synthesize: synthesize,
	}
	response, err := askViaHTTP(*serverURL, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(response)
		return
	}
	printResponse(response)
}

func printResponse(resp *models.AskResponse) {
	if resp.Suggestion != "" {
		fmt.Println(resp.Suggestion)
		return
	}
	if resp.Answer != "" {
		fmt.Println(resp.Answer)
		fmt.Println()
	} else if resp.Partial {
		fmt.Println("(no synthesized answer; showing ranked evidence)")
		fmt.Println()
	}
	fmt.Printf("Topic: %s  Intent: %s", resp.Topic, resp.Intent)
	if resp.Flow != "" {
		fmt.Printf("  Flow: %s", resp.Flow)
	}
	fmt.Printf("  (%dms)\n", resp.QueryTime)
	if len(resp.Degraded) > 0 {
		fmt.Printf("Degraded stages: %s\n", strings.Join(resp.Degraded, ", "))
	}
	for _, r := range resp.Results {
		heading := r.Chunk.Heading()
		if heading == "" {
			heading = r.Chunk.NoteID
		}
		fmt.Printf("%2d. [%.3f] %s\n", r.Rank, r.FinalScore, heading)
		fmt.Printf("    %s\n", utils.Truncate(r.Chunk.Content, 160))
	}
	if resp.SessionID != "" {
		fmt.Printf("\nSession: %s\n", resp.SessionID)
	}
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	noteID := fs.String("note", "", "note ID (defaults to the file name)")
	topic := fs.String("topic", "", "topic label")
	tags := fs.String("tags", "", "comma-separated tags")
	heading := fs.String("heading", "", "heading path, segments separated by '>'")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: kotae ingest [flags] <file> (use - for stdin)")
		fs.PrintDefaults()
		os.Exit(1)
	}
	path := fs.Arg(0)

	var content []byte
	var err error
	if path == "-" {
		content, err = io.ReadAll(os.Stdin)
	} else {
		content, err = os.ReadFile(path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	input := &models.ChunkInput{
		NoteID:  *noteID,
		Content: string(content),
		Topic:   *topic,
	}
	if input.NoteID == "" && path != "-" {
		input.NoteID = filepath.Base(path)
	}
	if *tags != "" {
		for _, t := range strings.Split(*tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				input.Tags = append(input.Tags, t)
			}
		}
	}
	if *heading != "" {
		for _, h := range strings.Split(*heading, ">") {
			if h = strings.TrimSpace(h); h != "" {
				input.HeadingPath = append(input.HeadingPath, h)
			}
		}
	}

	id, err := ingestViaHTTP(*serverURL, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Ingested chunk %s\n", id)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/v1/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Status request failed: %s\n", strings.TrimSpace(string(body)))
		os.Exit(1)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		fmt.Println(string(body))
		return
	}
	fmt.Println(pretty.String())
}

func askViaHTTP(serverURL string, query *models.AskQuery) (*models.AskResponse, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ask", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, decodeErrorResponse(resp)
	}
	var response models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &response, nil
}

func ingestViaHTTP(serverURL string, input *models.ChunkInput) (string, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	resp, err := http.Post(serverURL+"/api/v1/chunks", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", decodeErrorResponse(resp)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return created.ID, nil
}

func decodeErrorResponse(resp *http.Response) error {
	var apiErr struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// Components holds initialized dependencies for the server.
type Components struct {
	Store        storage.Store
	Cache        *embedding.Cache
	VectorIndex  vector.Index
	Corpus       *keyword.CorpusIndex
	Sessions     *memory.Registry
	Recorder     *quality.Recorder
	Orchestrator *pipeline.Orchestrator
	Ingestor     *ingest.Ingestor
}

// Close releases all component resources.
func (c *Components) Close() {
	if c.Recorder != nil {
		c.Recorder.Close()
	}
	if c.Corpus != nil {
		_ = c.Corpus.Close()
	}
	if c.VectorIndex != nil {
		_ = c.VectorIndex.Close()
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	ctx := context.Background()

	store, err := storage.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var embedder embedding.Embedder
	if cfg.Embedding.Endpoint != "" {
		embedder = embedding.NewHTTPEmbedder(cfg.Embedding.Endpoint, cfg.Embedding.Dimensions, cfg.Embedding.Timeout)
	} else {
		logger.Warn("no embedding endpoint configured, using deterministic mock embedder")
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}
	cache := embedding.NewCache(embedder, cfg.Embedding.CacheSize, cfg.Embedding.CacheTTL, store)
	if pruned, pruneErr := store.PruneEmbeddings(ctx, time.Now().Add(-cfg.Embedding.CacheTTL)); pruneErr != nil {
		logger.Warn("embedding cache prune skipped", zap.Error(pruneErr))
	} else if pruned > 0 {
		logger.Info("expired cached embeddings pruned", zap.Int64("rows", pruned))
	}
	if err := cache.WarmLoad(ctx); err != nil {
		logger.Warn("embedding cache warm-load skipped", zap.Error(err))
	} else {
		logger.Info("embedding cache warmed", zap.Int("entries", cache.Len()))
	}

	vectorIndex, err := vector.NewMemoryIndex(cfg.Embedding.Dimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if cfg.Storage.VectorIndexPath != "" {
		if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
			logger.Warn("vector index load skipped",
				zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
		}
	}

	corpus, err := keyword.NewCorpusIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize corpus index: %w", err)
	}

	ingestor := ingest.NewIngestor(store, cache, vectorIndex, corpus, logger)
	if vectorIndex.Size() == 0 {
		n, rebuildErr := ingestor.Rebuild(ctx)
		if rebuildErr != nil {
			logger.Warn("vector index rebuild failed", zap.Error(rebuildErr))
		} else if n > 0 {
			logger.Info("vector index rebuilt from stored embeddings", zap.Int("chunks", n))
		}
	}

	classifier, err := classify.NewClassifier(ctx, cache, cfg.Search.TopicThreshold, store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}

	var reranker *rerank.Reranker
	if cfg.Search.RerankEnabled {
		var scorer rerank.RelevanceScorer
		if cfg.Search.RerankEndpoint != "" {
			scorer = rerank.NewHTTPScorer(cfg.Search.RerankEndpoint)
		}
		reranker = rerank.NewReranker(scorer, cfg.Search.RerankTimeout,
			cfg.Search.SimilarityWeight, cfg.Search.RerankWeight, logger)
	}

	var synthesizer synthesis.Synthesizer
	if cfg.Synthesis.Enabled && cfg.Synthesis.Endpoint != "" {
		synthesizer = synthesis.NewHTTPSynthesizer(cfg.Synthesis.Endpoint, cfg.Synthesis.Model, cfg.Synthesis.Timeout)
	}

	sessions := memory.NewRegistry(cfg.Memory.Capacity, cfg.Memory.RecentResults)
	recorder := quality.NewRecorder(cfg.Quality.BufferSize, logger)

	orchestrator := pipeline.NewOrchestrator(pipeline.Options{
		Store:       store,
		Cache:       cache,
		VectorIndex: vectorIndex,
		Corpus:      corpus,
		Scorer:      keyword.NewScorer(cfg.Search.PhraseBonus, cfg.Search.HeadingBonus),
		Classifier:  classifier,
		Filter:      filter.New(cfg.Search.FilterThreshold),
		Reranker:    reranker,
		Sessions:    sessions,
		Evaluator:   quality.NewEvaluator(cfg.Quality.EvalTopK),
		Recorder:    recorder,
		Composer:    synthesis.NewComposer(0),
		Synthesizer: synthesizer,
		Config:      &cfg.Search,
		Logger:      logger,
	})

	return &Components{
		Store:        store,
		Cache:        cache,
		VectorIndex:  vectorIndex,
		Corpus:       corpus,
		Sessions:     sessions,
		Recorder:     recorder,
		Orchestrator: orchestrator,
		Ingestor:     ingestor,
	}, nil
}

func printUsage() {
	fmt.Println(`kotae - question answering over your notes

Usage:
  kotae server [flags]            Start the HTTP server
  kotae ask [flags] <question>    Ask a question
  kotae ingest [flags] <file>     Ingest a note chunk (use - for stdin)
  kotae status [flags]            Show server status
  kotae version                   Show version

Run "kotae <command> -h" for command flags.`)
}
