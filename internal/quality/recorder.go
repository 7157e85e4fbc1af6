package quality

import (
	"sync"

	"go.uber.org/zap"
)

// Aggregate is the rolling session-level quality summary.
type Aggregate struct {
	Queries          int     `json:"queries"`
	WithGroundTruth  int     `json:"with_ground_truth"`
	MeanPrecisionAtK float64 `json:"mean_precision_at_k"`
	MeanMRR          float64 `json:"mean_mrr"`
	MeanNDCG         float64 `json:"mean_ndcg"`
	MeanRelevance    float64 `json:"mean_relevance"`
	MeanCompleteness float64 `json:"mean_completeness"`
	MeanCoherence    float64 `json:"mean_coherence"`
	UniformScoreHits int     `json:"uniform_score_hits"`
}

// Recorder aggregates reports off the response path. Record never blocks: a
// full buffer drops the report rather than stalling a query.
type Recorder struct {
	reports chan *Report
	logger  *zap.Logger

	closeMu sync.Mutex
	closed  bool

	mu  sync.RWMutex
	agg Aggregate
	// running sums for the means
	sumP, sumMRR, sumNDCG, sumRel, sumComp, sumCoh float64

	done chan struct{}
}

// NewRecorder starts a recorder with the given buffer size.
func NewRecorder(bufferSize int, logger *zap.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		reports: make(chan *Report, bufferSize),
		logger:  logger,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record submits a report asynchronously; a full buffer drops it. Recording
// after Close is a no-op, so detached goroutines racing shutdown are safe.
func (r *Recorder) Record(report *Report) {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.reports <- report:
	default:
		r.logger.Debug("quality recorder buffer full, dropping report")
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for report := range r.reports {
		r.mu.Lock()
		r.agg.Queries++
		r.sumRel += report.Relevance
		r.sumComp += report.Completeness
		r.sumCoh += report.Coherence
		if report.UniformScores {
			r.agg.UniformScoreHits++
		}
		if report.HasGroundTruth {
			r.agg.WithGroundTruth++
			r.sumP += report.PrecisionAtK
			r.sumMRR += report.MRR
			r.sumNDCG += report.NDCG
		}
		n := float64(r.agg.Queries)
		r.agg.MeanRelevance = r.sumRel / n
		r.agg.MeanCompleteness = r.sumComp / n
		r.agg.MeanCoherence = r.sumCoh / n
		if r.agg.WithGroundTruth > 0 {
			g := float64(r.agg.WithGroundTruth)
			r.agg.MeanPrecisionAtK = r.sumP / g
			r.agg.MeanMRR = r.sumMRR / g
			r.agg.MeanNDCG = r.sumNDCG / g
		}
		r.mu.Unlock()
	}
}

// Aggregate returns a snapshot of the rolling aggregate.
func (r *Recorder) Aggregate() Aggregate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agg
}

// Close stops the recorder after draining buffered reports. Safe to call more
// than once.
func (r *Recorder) Close() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	close(r.reports)
	r.closeMu.Unlock()
	<-r.done
}
