// Package rerank re-scores top candidates with a pairwise relevance model.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// ErrUnavailable indicates the relevance-scoring capability was unreachable or
// timed out. The caller receives the fused-score ordering instead of a hard failure.
var ErrUnavailable = errors.New("relevance scoring capability unavailable")

const scoreConcurrency = 3

// RelevanceScorer is the external relevance-scoring capability: a pairwise
// query/passage score in [0,1]. Stateless and batchable.
type RelevanceScorer interface {
	Score(ctx context.Context, query, passage string) (float64, error)
}

// Reranker pairs the query with each candidate's text and blends the pairwise
// relevance score with the fused retrieval score.
type Reranker struct {
	scorer           RelevanceScorer
	timeout          time.Duration
	similarityWeight float64
	rerankWeight     float64
	logger           *zap.Logger
}

// NewReranker creates a re-ranker over scorer. The blend defaults to 0.3
// fused + 0.7 relevance when both weights are zero.
func NewReranker(scorer RelevanceScorer, timeout time.Duration, similarityWeight, rerankWeight float64, logger *zap.Logger) *Reranker {
	if similarityWeight <= 0 && rerankWeight <= 0 {
		similarityWeight = 0.3
		rerankWeight = 0.7
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reranker{
		scorer:           scorer,
		timeout:          timeout,
		similarityWeight: similarityWeight,
		rerankWeight:     rerankWeight,
		logger:           logger,
	}
}

// Rerank re-scores candidates and returns the top topK by the blended final
// score. On any relevance-capability failure or timeout it returns the input
// ordered by fused score alone together with ErrUnavailable; the returned
// slice is always usable.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []*models.SearchResult, topK int) ([]*models.SearchResult, error) {
	if len(candidates) == 0 {
		return candidates, nil
	}
	if r.scorer == nil {
		return fallback(candidates, topK), ErrUnavailable
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	scores := make([]float64, len(candidates))
	errs := make([]error, len(candidates))
	sem := make(chan struct{}, scoreConcurrency)
	var wg sync.WaitGroup
	for i, cand := range candidates {
		wg.Add(1)
		go func(i int, passage string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-timeoutCtx.Done():
				errs[i] = timeoutCtx.Err()
				return
			}
			defer func() { <-sem }()
			scores[i], errs[i] = r.scorer.Score(timeoutCtx, query, passage)
		}(i, cand.Chunk.Content)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			r.logger.Warn("rerank degraded to fused ordering", zap.Error(err))
			return fallback(candidates, topK), fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	reranked := make([]*models.SearchResult, len(candidates))
	for i, cand := range candidates {
		out := *cand
		out.RerankScore = scores[i]
		out.FinalScore = cand.FusedScore*r.similarityWeight + scores[i]*r.rerankWeight
		reranked[i] = &out
	}
	sort.Slice(reranked, func(i, j int) bool {
		if reranked[i].FinalScore != reranked[j].FinalScore {
			return reranked[i].FinalScore > reranked[j].FinalScore
		}
		return reranked[i].Chunk.ID < reranked[j].Chunk.ID
	})
	return truncate(reranked, topK), nil
}

// fallback returns the candidates ordered by fused score, truncated to topK.
func fallback(candidates []*models.SearchResult, topK int) []*models.SearchResult {
	out := make([]*models.SearchResult, len(candidates))
	copy(out, candidates)
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return truncate(out, topK)
}

func truncate(results []*models.SearchResult, topK int) []*models.SearchResult {
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}
