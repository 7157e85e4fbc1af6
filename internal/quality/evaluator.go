// Package quality computes ranking-quality and response-quality metrics.
package quality

import (
	"math"
	"sort"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Judgments holds graded relevance judgments keyed by chunk ID. Binary
// judgments use grade 1 for relevant, 0 (or absence) for irrelevant.
type Judgments struct {
	Grades map[string]float64
}

// Relevant reports whether the chunk has a positive grade.
func (j *Judgments) Relevant(id string) bool {
	return j != nil && j.Grades[id] > 0
}

// Report is the per-query quality report. Created once per query and never
// mutated retroactively.
type Report struct {
	Query        string    `json:"query"`
	PrecisionAtK float64   `json:"precision_at_k"`
	MRR          float64   `json:"mrr"`
	NDCG         float64   `json:"ndcg"`
	Relevance    float64   `json:"relevance"`
	Completeness float64   `json:"completeness"`
	Coherence    float64   `json:"coherence"`
	ScoreSpread  float64   `json:"score_spread"`
	// UniformScores flags a tight score cluster near the maximum: every
	// result scoring identically high usually means the ranking collapsed.
	UniformScores  bool      `json:"uniform_scores"`
	HasGroundTruth bool      `json:"has_ground_truth"`
	Timestamp      time.Time `json:"timestamp"`
}

// Evaluator computes quality reports. K bounds the ranked prefix the
// ranking metrics are computed over.
type Evaluator struct {
	k int
}

// NewEvaluator creates an evaluator over the top k results.
func NewEvaluator(k int) *Evaluator {
	if k <= 0 {
		k = 5
	}
	return &Evaluator{k: k}
}

// Evaluate scores one query's results. With ground truth it computes
// Precision@K, MRR, and NDCG@K; without it (the common case at runtime) it
// falls back to proxy signals over the response text and score distribution.
func (e *Evaluator) Evaluate(query, response string, results []*models.SearchResult, truth *Judgments) *Report {
	report := &Report{
		Query:     query,
		Timestamp: time.Now(),
	}

	report.ScoreSpread = scoreSpread(results)
	report.UniformScores = uniformScores(results, report.ScoreSpread)

	if truth != nil && len(truth.Grades) > 0 {
		report.HasGroundTruth = true
		report.PrecisionAtK = e.precisionAtK(results, truth)
		report.MRR = mrr(results, truth)
		report.NDCG = e.ndcg(results, truth)
	}

	report.Relevance = keywordCoverage(query, response)
	report.Completeness = lengthAppropriateness(response)
	if report.UniformScores {
		report.Coherence = 0
	} else {
		report.Coherence = utils.Clamp01(report.ScoreSpread * 4)
	}
	return report
}

// precisionAtK is (relevant results in top K) / K.
func (e *Evaluator) precisionAtK(results []*models.SearchResult, truth *Judgments) float64 {
	k := e.k
	if k > len(results) {
		k = len(results)
	}
	if k == 0 {
		return 0
	}
	relevant := 0
	for _, r := range results[:k] {
		if truth.Relevant(r.Chunk.ID) {
			relevant++
		}
	}
	return float64(relevant) / float64(e.k)
}

// mrr is 1/(rank of first relevant result), 0 when none is relevant.
func mrr(results []*models.SearchResult, truth *Judgments) float64 {
	for i, r := range results {
		if truth.Relevant(r.Chunk.ID) {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

// ndcg is DCG@K / IDCG@K over the graded judgments.
func (e *Evaluator) ndcg(results []*models.SearchResult, truth *Judgments) float64 {
	k := e.k
	if k > len(results) {
		k = len(results)
	}
	var dcg float64
	for i := 0; i < k; i++ {
		grade := truth.Grades[results[i].Chunk.ID]
		dcg += grade / math.Log2(float64(i+2))
	}

	grades := make([]float64, 0, len(truth.Grades))
	for _, g := range truth.Grades {
		grades = append(grades, g)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(grades)))
	var idcg float64
	for i := 0; i < len(grades) && i < e.k; i++ {
		idcg += grades[i] / math.Log2(float64(i+2))
	}
	if idcg == 0 {
		return 0
	}
	return dcg / idcg
}

// keywordCoverage is the fraction of query tokens appearing in the response.
func keywordCoverage(query, response string) float64 {
	queryTokens := utils.TokenSet(query)
	if len(queryTokens) == 0 || response == "" {
		return 0
	}
	responseTokens := utils.TokenSet(response)
	covered := 0
	for tok := range queryTokens {
		if _, ok := responseTokens[tok]; ok {
			covered++
		}
	}
	return float64(covered) / float64(len(queryTokens))
}

// lengthAppropriateness scores response length: full credit inside the
// 100..2000 character band, scaled down outside it.
func lengthAppropriateness(response string) float64 {
	n := len(response)
	switch {
	case n == 0:
		return 0
	case n < 100:
		return float64(n) / 100
	case n <= 2000:
		return 1
	default:
		return utils.Clamp01(2000.0 / float64(n))
	}
}

// scoreSpread is the standard deviation of the final scores.
func scoreSpread(results []*models.SearchResult) float64 {
	if len(results) < 2 {
		return 0
	}
	var mean float64
	for _, r := range results {
		mean += r.FinalScore
	}
	mean /= float64(len(results))
	var variance float64
	for _, r := range results {
		d := r.FinalScore - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(results)))
}

// uniformScores detects the broken symptom of every result scoring
// identically high: near-zero spread with a high mean.
func uniformScores(results []*models.SearchResult, spread float64) bool {
	if len(results) < 2 {
		return false
	}
	var mean float64
	for _, r := range results {
		mean += r.FinalScore
	}
	mean /= float64(len(results))
	return spread < 0.02 && mean > 0.85
}
