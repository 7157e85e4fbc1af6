package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/classify"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/filter"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/memory"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/quality"
	"github.com/hyperjump/kotae/internal/rerank"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/synthesis"
	"github.com/hyperjump/kotae/internal/vector"
)

// Orchestrator drives one query through classification, filtering, hybrid
// retrieval, re-ranking, synthesis, and bookkeeping. Each Ask call is
// independent; all shared components are safe for concurrent use.
type Orchestrator struct {
	store       storage.Store
	cache       *embedding.Cache
	vectorIndex vector.Index
	corpus      *keyword.CorpusIndex
	scorer      *keyword.Scorer
	classifier  *classify.Classifier
	filter      *filter.Filter
	reranker    *rerank.Reranker
	sessions    *memory.Registry
	evaluator   *quality.Evaluator
	recorder    *quality.Recorder
	composer    *synthesis.Composer
	synthesizer synthesis.Synthesizer
	cfg         *config.SearchConfig
	logger      *zap.Logger
}

// Options bundles the orchestrator's collaborators. Reranker, Synthesizer,
// and Recorder may be nil; the corresponding stages are skipped.
type Options struct {
	Store       storage.Store
	Cache       *embedding.Cache
	VectorIndex vector.Index
	Corpus      *keyword.CorpusIndex
	Scorer      *keyword.Scorer
	Classifier  *classify.Classifier
	Filter      *filter.Filter
	Reranker    *rerank.Reranker
	Sessions    *memory.Registry
	Evaluator   *quality.Evaluator
	Recorder    *quality.Recorder
	Composer    *synthesis.Composer
	Synthesizer synthesis.Synthesizer
	Config      *config.SearchConfig
	Logger      *zap.Logger
}

// NewOrchestrator creates a query orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	composer := opts.Composer
	if composer == nil {
		composer = synthesis.NewComposer(0)
	}
	return &Orchestrator{
		store:       opts.Store,
		cache:       opts.Cache,
		vectorIndex: opts.VectorIndex,
		corpus:      opts.Corpus,
		scorer:      opts.Scorer,
		classifier:  opts.Classifier,
		filter:      opts.Filter,
		reranker:    opts.Reranker,
		sessions:    opts.Sessions,
		evaluator:   opts.Evaluator,
		recorder:    opts.Recorder,
		composer:    composer,
		synthesizer: opts.Synthesizer,
		cfg:         opts.Config,
		logger:      logger,
	}
}

// Ask answers one question. Single-stage failures degrade to the next
// available stage and are reported in the response's Degraded list; the only
// hard retrieval error is both search paths failing at once.
func (o *Orchestrator) Ask(ctx context.Context, query *models.AskQuery) (*models.AskResponse, error) {
	start := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	session := o.sessions.GetOrCreate(query.SessionID)
	cls := o.classifier.Classify(ctx, query.Query)
	flow := session.Observe(cls.Topic)

	resp := &models.AskResponse{
		Query:     query.Query,
		Topic:     string(cls.Topic),
		Intent:    string(cls.Intent),
		Flow:      string(flow),
		SessionID: session.ID,
	}

	all, err := o.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	candidates := o.filter.Apply(all, cls.Topic, query.Filters)
	narrowed := len(candidates) < len(all)

	var (
		vectorResults  []*models.SearchResult
		keywordResults []*models.SearchResult
		vectorErr      error
		keywordErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vectorResults, vectorErr = o.vectorSearch(gctx, query.Query, candidates, narrowed)
		return nil
	})
	g.Go(func() error {
		keywordResults, keywordErr = o.keywordSearch(gctx, query.Query, candidates, narrowed)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if vectorErr != nil && keywordErr != nil {
		return nil, fmt.Errorf("%w: vector: %v; keyword: %v", ErrNoSearchPath, vectorErr, keywordErr)
	}

	vectorWeight, keywordWeight := query.VectorWeight, query.KeywordWeight
	if vectorErr != nil {
		o.logger.Warn("vector path unavailable, keyword-only search",
			zap.String("query", query.Query), zap.Error(vectorErr))
		resp.Degraded = append(resp.Degraded, "vector")
		vectorWeight, keywordWeight = 0, 1
	}
	if keywordErr != nil {
		o.logger.Warn("keyword path unavailable, vector-only search",
			zap.String("query", query.Query), zap.Error(keywordErr))
		resp.Degraded = append(resp.Degraded, "keyword")
		vectorWeight, keywordWeight = 1, 0
	}

	fused := search.Fuse(vectorResults, keywordResults, vectorWeight, keywordWeight)
	if len(fused) == 0 {
		resp.Results = []*models.SearchResult{}
		resp.Suggestion = NoResultsSuggestion
		resp.QueryTime = time.Since(start).Milliseconds()
		session.RecordTurn(memory.ConversationTurn{
			Query:     query.Query,
			Timestamp: time.Now(),
			Elapsed:   time.Since(start),
		}, nil)
		return resp, nil
	}

	results := fused
	if o.cfg.RerankEnabled && o.reranker != nil {
		reranked, rerankErr := o.reranker.Rerank(ctx, query.Query, fused, o.cfg.RerankTopK)
		if rerankErr != nil {
			resp.Degraded = append(resp.Degraded, "rerank")
		}
		results = reranked
	}
	if len(results) > query.Limit {
		results = results[:query.Limit]
	}
	resp.Results = results

	if query.WantSynthesis() {
		resp.Answer, resp.Partial = o.synthesize(ctx, query.Query, cls.Topic, results)
		if resp.Partial {
			resp.Degraded = append(resp.Degraded, "synthesis")
		}
	}

	resp.QueryTime = time.Since(start).Milliseconds()
	session.RecordTurn(memory.ConversationTurn{
		Query:       query.Query,
		Response:    resp.Answer,
		Timestamp:   time.Now(),
		ResultCount: len(results),
		Elapsed:     time.Since(start),
	}, results)

	if o.recorder != nil && o.evaluator != nil {
		go func(q, answer string, rs []*models.SearchResult) {
			o.recorder.Record(o.evaluator.Evaluate(q, answer, rs, nil))
		}(query.Query, resp.Answer, results)
	}

	return resp, nil
}

// vectorSearch embeds the query and searches the vector index, restricted to
// the filtered candidate set when filtering narrowed it.
func (o *Orchestrator) vectorSearch(ctx context.Context, query string, candidates []*models.Chunk, narrowed bool) ([]*models.SearchResult, error) {
	queryVec, err := o.cache.GetOrCompute(ctx, query)
	if err != nil {
		return nil, err
	}

	var candidateIDs []string
	byID := make(map[string]*models.Chunk, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
		if narrowed {
			candidateIDs = append(candidateIDs, c.ID)
		}
	}

	hits, err := o.vectorIndex.Search(ctx, queryVec, candidateIDs, o.cfg.TopKCandidates)
	if err != nil {
		return nil, err
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		chunk, ok := byID[h.ID]
		if !ok {
			continue
		}
		results = append(results, &models.SearchResult{Chunk: chunk, VectorScore: h.Score})
	}
	return results, nil
}

// keywordSearch scores the filtered candidates lexically. When filtering did
// not narrow the set, the bleve corpus index preselects candidates so the
// scorer runs over the lexically closest chunks instead of the whole corpus;
// if exact-token scoring finds nothing there, the normalized corpus scores
// are used directly (analyzer matches with no surviving token overlap).
func (o *Orchestrator) keywordSearch(ctx context.Context, query string, candidates []*models.Chunk, narrowed bool) ([]*models.SearchResult, error) {
	if narrowed || o.corpus == nil {
		return o.scorer.Search(query, candidates), nil
	}

	hits, err := o.corpus.Search(ctx, query, o.cfg.TopKCandidates)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	byID := make(map[string]*models.Chunk, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	chunks := make([]*models.Chunk, 0, len(hits))
	for _, h := range hits {
		if chunk, ok := byID[h.ID]; ok {
			chunks = append(chunks, chunk)
		}
	}

	results := o.scorer.Search(query, chunks)
	if len(results) > 0 {
		return results, nil
	}

	normalized := search.NormalizeCorpusHits(hits)
	results = make([]*models.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, &models.SearchResult{
			Chunk:        chunk,
			KeywordScore: normalized[chunk.ID],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].KeywordScore != results[j].KeywordScore {
			return results[i].KeywordScore > results[j].KeywordScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results, nil
}

// synthesize composes the evidence prompt and calls the synthesis capability.
// A missing or failing capability yields a partial result, never an error.
func (o *Orchestrator) synthesize(ctx context.Context, query string, topic classify.Topic, evidence []*models.SearchResult) (answer string, partial bool) {
	if o.synthesizer == nil || len(evidence) == 0 {
		return "", true
	}
	prompt := o.composer.Compose(query, string(topic), evidence)
	answer, err := o.synthesizer.Generate(ctx, prompt)
	if err != nil {
		o.logger.Warn("synthesis failed, returning ranked evidence only",
			zap.String("query", query), zap.Error(err))
		return "", true
	}
	return answer, false
}
