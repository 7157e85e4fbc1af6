package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Encoder supplies embeddings for seed phrases and query text. Satisfied by
// the embedding cache.
type Encoder interface {
	GetOrCompute(ctx context.Context, text string) ([]float32, error)
}

// CentroidStore persists topic centroids so restarts skip recomputation.
// A nil store disables persistence.
type CentroidStore interface {
	SaveCentroid(ctx context.Context, topic string, centroid []float32) error
	LoadCentroids(ctx context.Context) (map[string][]float32, error)
}

// Classification is the result of classifying one query.
type Classification struct {
	Topic      Topic
	Intent     Intent
	Confidence float64
}

// Classifier assigns topics by cosine similarity against precomputed topic
// centroids, and intents by pattern matching. Centroids are computed once at
// startup and read-only thereafter; Classify is safe for concurrent use.
type Classifier struct {
	encoder   Encoder
	threshold float64
	centroids map[Topic][]float32
}

// NewClassifier builds a classifier, loading centroids from store when a
// complete set is persisted, otherwise computing them from the topic seed
// phrases through the encoder and persisting the result.
func NewClassifier(ctx context.Context, encoder Encoder, threshold float64, store CentroidStore) (*Classifier, error) {
	c := &Classifier{
		encoder:   encoder,
		threshold: threshold,
		centroids: make(map[Topic][]float32, len(topicProfiles)),
	}

	if store != nil {
		saved, err := store.LoadCentroids(ctx)
		if err == nil && len(saved) >= len(topicProfiles) {
			complete := true
			for _, p := range topicProfiles {
				vec, ok := saved[string(p.topic)]
				if !ok {
					complete = false
					break
				}
				c.centroids[p.topic] = vec
			}
			if complete {
				return c, nil
			}
			c.centroids = make(map[Topic][]float32, len(topicProfiles))
		}
	}

	for _, p := range topicProfiles {
		centroid, err := computeCentroid(ctx, encoder, p.seeds)
		if err != nil {
			return nil, fmt.Errorf("compute centroid for %s: %w", p.topic, err)
		}
		c.centroids[p.topic] = centroid
		if store != nil {
			if err := store.SaveCentroid(ctx, string(p.topic), centroid); err != nil {
				return nil, fmt.Errorf("persist centroid for %s: %w", p.topic, err)
			}
		}
	}
	return c, nil
}

// computeCentroid returns the unit-normalized mean of the seed phrase embeddings.
func computeCentroid(ctx context.Context, encoder Encoder, seeds []string) ([]float32, error) {
	var centroid []float32
	for _, seed := range seeds {
		vec, err := encoder.GetOrCompute(ctx, seed)
		if err != nil {
			return nil, err
		}
		if centroid == nil {
			centroid = make([]float32, len(vec))
		}
		for i, v := range vec {
			centroid[i] += v
		}
	}
	n := float32(len(seeds))
	for i := range centroid {
		centroid[i] /= n
	}
	utils.NormalizeL2(centroid)
	return centroid, nil
}

// Classify tags the text with a topic, an intent, and the topic confidence.
// The best centroid similarity must exceed the threshold, otherwise the topic
// is TopicGeneral. When the encoder fails (embedding capability down), topic
// assignment degrades to keyword-list matching instead of failing the query.
func (c *Classifier) Classify(ctx context.Context, text string) Classification {
	intent := DetectIntent(text)

	queryVec, err := c.encoder.GetOrCompute(ctx, text)
	if err != nil {
		topic, confidence := c.classifyByKeywords(text)
		return Classification{Topic: topic, Intent: intent, Confidence: confidence}
	}

	best := TopicGeneral
	bestSim := 0.0
	for topic, centroid := range c.centroids {
		sim := vector.CosineSimilarity(queryVec, centroid)
		if sim > bestSim {
			best = topic
			bestSim = sim
		}
	}
	if bestSim <= c.threshold {
		return Classification{Topic: TopicGeneral, Intent: intent, Confidence: bestSim}
	}
	return Classification{Topic: best, Intent: intent, Confidence: bestSim}
}

// classifyByKeywords matches query tokens against each topic's keyword list.
// Confidence is the matched fraction of query tokens, thresholded the same
// way as centroid similarity.
func (c *Classifier) classifyByKeywords(text string) (Topic, float64) {
	tokens := utils.Tokenize(text)
	if len(tokens) == 0 {
		return TopicGeneral, 0
	}
	best := TopicGeneral
	bestScore := 0.0
	for _, p := range topicProfiles {
		matches := 0
		for _, tok := range tokens {
			for _, kw := range p.keywords {
				if tok == kw || strings.HasPrefix(tok, kw) {
					matches++
					break
				}
			}
		}
		score := float64(matches) / float64(len(tokens))
		if score > bestScore {
			best = p.topic
			bestScore = score
		}
	}
	if bestScore <= c.threshold {
		return TopicGeneral, bestScore
	}
	return best, bestScore
}
