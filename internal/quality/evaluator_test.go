package quality

import (
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

func ranked(ids ...string) []*models.SearchResult {
	out := make([]*models.SearchResult, len(ids))
	for i, id := range ids {
		out[i] = &models.SearchResult{
			Chunk:      &models.Chunk{ID: id},
			FinalScore: 1.0 - float64(i)*0.1,
			Rank:       i + 1,
		}
	}
	return out
}

func TestPrecisionAtK(t *testing.T) {
	e := NewEvaluator(5)
	truth := &Judgments{Grades: map[string]float64{"a": 1, "c": 1}}
	report := e.Evaluate("q", "", ranked("a", "b", "c", "d", "e"), truth)
	if report.PrecisionAtK != 2.0/5.0 {
		t.Errorf("P@5 = %f, want 0.4", report.PrecisionAtK)
	}
	if !report.HasGroundTruth {
		t.Error("ground truth flag not set")
	}
}

func TestMRRFirstRelevantAtRankTwo(t *testing.T) {
	e := NewEvaluator(5)
	truth := &Judgments{Grades: map[string]float64{"b": 1}}
	report := e.Evaluate("q", "", ranked("a", "b", "c"), truth)
	if report.MRR != 0.5 {
		t.Errorf("MRR = %f, want exactly 0.5 for first relevant at rank 2", report.MRR)
	}
}

func TestMRRNoRelevant(t *testing.T) {
	e := NewEvaluator(5)
	truth := &Judgments{Grades: map[string]float64{"z": 1}}
	report := e.Evaluate("q", "", ranked("a", "b"), truth)
	if report.MRR != 0 {
		t.Errorf("MRR = %f, want 0 when nothing relevant is returned", report.MRR)
	}
}

func TestNDCGPerfectRanking(t *testing.T) {
	e := NewEvaluator(3)
	truth := &Judgments{Grades: map[string]float64{"a": 3, "b": 2, "c": 1}}
	report := e.Evaluate("q", "", ranked("a", "b", "c"), truth)
	if report.NDCG != 1.0 {
		t.Errorf("ideal ordering should give NDCG 1.0, got %f", report.NDCG)
	}
}

func TestNDCGImperfectRankingBelowOne(t *testing.T) {
	e := NewEvaluator(3)
	truth := &Judgments{Grades: map[string]float64{"a": 3, "b": 2, "c": 1}}
	report := e.Evaluate("q", "", ranked("c", "b", "a"), truth)
	if report.NDCG >= 1.0 || report.NDCG <= 0 {
		t.Errorf("reversed ordering should give 0 < NDCG < 1, got %f", report.NDCG)
	}
}

func TestProxySignalsWithoutGroundTruth(t *testing.T) {
	e := NewEvaluator(5)
	response := "Profiling shows the cache misses dominate latency in this service. " +
		"Reducing allocation pressure and tuning the eviction policy brought p99 down."
	report := e.Evaluate("cache latency profiling", response, ranked("a", "b", "c"), nil)
	if report.HasGroundTruth {
		t.Error("no judgments were provided")
	}
	if report.Relevance != 1.0 {
		t.Errorf("all query terms appear in the response, relevance = %f", report.Relevance)
	}
	if report.Completeness != 1.0 {
		t.Errorf("response length is inside the band, completeness = %f", report.Completeness)
	}
	if report.PrecisionAtK != 0 || report.MRR != 0 || report.NDCG != 0 {
		t.Error("ranking metrics should be zero without ground truth")
	}
}

func TestUniformScoresDetected(t *testing.T) {
	e := NewEvaluator(5)
	results := []*models.SearchResult{
		{Chunk: &models.Chunk{ID: "a"}, FinalScore: 0.95},
		{Chunk: &models.Chunk{ID: "b"}, FinalScore: 0.95},
		{Chunk: &models.Chunk{ID: "c"}, FinalScore: 0.95},
	}
	report := e.Evaluate("q", "", results, nil)
	if !report.UniformScores {
		t.Error("identical high scores should be flagged")
	}
	if report.Coherence != 0 {
		t.Errorf("coherence should be zeroed when scores are uniform, got %f", report.Coherence)
	}

	spread := e.Evaluate("q", "", ranked("a", "b", "c"), nil)
	if spread.UniformScores {
		t.Error("spread scores should not be flagged")
	}
}

func TestRecorderAggregates(t *testing.T) {
	r := NewRecorder(16, zap.NewNop())
	e := NewEvaluator(5)
	truth := &Judgments{Grades: map[string]float64{"a": 1}}
	for i := 0; i < 3; i++ {
		r.Record(e.Evaluate("q", "answer text", ranked("a", "b"), truth))
	}
	r.Close()

	agg := r.Aggregate()
	if agg.Queries != 3 {
		t.Fatalf("expected 3 recorded reports, got %d", agg.Queries)
	}
	if agg.MeanMRR != 1.0 {
		t.Errorf("mean MRR = %f, want 1.0", agg.MeanMRR)
	}
	if agg.WithGroundTruth != 3 {
		t.Errorf("expected 3 judged reports, got %d", agg.WithGroundTruth)
	}
}

func TestRecorderNeverBlocks(t *testing.T) {
	r := NewRecorder(1, zap.NewNop())
	// Far more reports than the buffer holds; overflow is dropped, not queued.
	for i := 0; i < 1000; i++ {
		r.Record(&Report{Query: "q"})
	}
	r.Close()
	if agg := r.Aggregate(); agg.Queries > 1000 {
		t.Errorf("impossible count %d", agg.Queries)
	}
}

func TestRecordAfterCloseIsNoop(t *testing.T) {
	r := NewRecorder(4, zap.NewNop())
	r.Record(&Report{Query: "q"})
	r.Close()

	// Async evaluation goroutines can outlive server shutdown; a late report
	// must be dropped silently, not crash.
	r.Record(&Report{Query: "late"})
	r.Close()

	if agg := r.Aggregate(); agg.Queries != 1 {
		t.Errorf("expected 1 recorded report, got %d", agg.Queries)
	}
}
