// Package search provides hybrid score fusion for vector and keyword results.
package search

import (
	"sort"

	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
)

// DefaultVectorWeight and DefaultKeywordWeight are the fusion defaults used
// when a query does not override them.
const (
	DefaultVectorWeight  = 0.7
	DefaultKeywordWeight = 0.3
)

// NormalizeCorpusHits normalizes raw BM25 corpus hits to [0,1] by max score.
func NormalizeCorpusHits(hits []*keyword.Hit) map[string]float64 {
	normalized := make(map[string]float64, len(hits))
	if len(hits) == 0 {
		return normalized
	}
	maxScore := hits[0].Score
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	for _, h := range hits {
		if maxScore > 0 {
			normalized[h.ID] = h.Score / maxScore
		} else {
			normalized[h.ID] = 0
		}
	}
	return normalized
}

// Fuse merges vector and keyword result sets into one ranked list. For each
// unique chunk appearing in either set, the fused score is
// vectorScore*vectorWeight + keywordScore*keywordWeight, with an absent score
// treated as 0. Results are deduplicated by chunk ID and sorted descending by
// fused score; ties are broken by chunk ID for determinism.
func Fuse(vectorResults, keywordResults []*models.SearchResult, vectorWeight, keywordWeight float64) []*models.SearchResult {
	if vectorWeight <= 0 && keywordWeight <= 0 {
		vectorWeight = DefaultVectorWeight
		keywordWeight = DefaultKeywordWeight
	}

	merged := make(map[string]*models.SearchResult)
	for _, r := range vectorResults {
		merged[r.Chunk.ID] = &models.SearchResult{
			Chunk:       r.Chunk,
			VectorScore: r.VectorScore,
		}
	}
	for _, r := range keywordResults {
		if existing, ok := merged[r.Chunk.ID]; ok {
			existing.KeywordScore = r.KeywordScore
		} else {
			merged[r.Chunk.ID] = &models.SearchResult{
				Chunk:        r.Chunk,
				KeywordScore: r.KeywordScore,
			}
		}
	}

	results := make([]*models.SearchResult, 0, len(merged))
	for _, r := range merged {
		r.FusedScore = (vectorWeight * r.VectorScore) + (keywordWeight * r.KeywordScore)
		r.FinalScore = r.FusedScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].FusedScore != results[j].FusedScore {
			return results[i].FusedScore > results[j].FusedScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	for i, r := range results {
		r.Rank = i + 1
	}
	return results
}
