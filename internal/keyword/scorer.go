// Package keyword provides lexical overlap scoring and the corpus keyword index.
package keyword

import (
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Scorer computes lexical overlap scores between a query and candidate chunks.
// It is a pure function of its inputs: no side effects, no external calls.
type Scorer struct {
	phraseBonus  float64
	headingBonus float64
}

// NewScorer creates a scorer with the given bonus constants. A flat
// phraseBonus is added when the query appears verbatim in the candidate text;
// headingBonus is added when query tokens appear in the heading path.
func NewScorer(phraseBonus, headingBonus float64) *Scorer {
	return &Scorer{phraseBonus: phraseBonus, headingBonus: headingBonus}
}

// Score returns the lexical overlap score for one candidate in [0,1]:
// token-set intersection-over-union, plus the phrase and heading bonuses,
// clamped to 1.
func (s *Scorer) Score(query string, chunk *models.Chunk) float64 {
	queryTokens := utils.TokenSet(query)
	if len(queryTokens) == 0 {
		return 0
	}
	contentTokens := utils.TokenSet(chunk.Content)

	intersection := 0
	for tok := range queryTokens {
		if _, ok := contentTokens[tok]; ok {
			intersection++
		}
	}
	union := len(queryTokens) + len(contentTokens) - intersection
	score := 0.0
	if union > 0 {
		score = float64(intersection) / float64(union)
	}

	if strings.Contains(strings.ToLower(chunk.Content), strings.ToLower(strings.TrimSpace(query))) {
		score += s.phraseBonus
	}

	if heading := chunk.Heading(); heading != "" {
		headingTokens := utils.TokenSet(heading)
		for tok := range queryTokens {
			if _, ok := headingTokens[tok]; ok {
				score += s.headingBonus
				break
			}
		}
	}

	return utils.Clamp01(score)
}

// Search scores every candidate against the query and returns results sorted
// descending by keyword score, ties broken by chunk ID. Returns an empty
// slice on empty input; never fails.
func (s *Scorer) Search(query string, candidates []*models.Chunk) []*models.SearchResult {
	results := make([]*models.SearchResult, 0, len(candidates))
	for _, chunk := range candidates {
		score := s.Score(query, chunk)
		if score == 0 {
			continue
		}
		results = append(results, &models.SearchResult{
			Chunk:        chunk,
			KeywordScore: score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].KeywordScore != results[j].KeywordScore {
			return results[i].KeywordScore > results[j].KeywordScore
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	return results
}
