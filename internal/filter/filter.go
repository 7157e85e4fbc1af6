// Package filter pre-narrows the candidate set using metadata before the
// expensive scoring stages.
package filter

import (
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/classify"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Relevance component weights. Hand-tuned defaults; the threshold is the
// configurable knob.
const (
	keywordWeight    = 0.5
	topicFieldWeight = 0.3
	tagWeight        = 0.2
)

// Filter narrows candidates by topic relevance and strict metadata predicates.
// It exists to bound the cost of re-ranking and must never empty the candidate
// set: a filter pass that would drop everything is skipped instead.
type Filter struct {
	threshold float64
}

// New creates a filter with the given relevance threshold.
func New(threshold float64) *Filter {
	return &Filter{threshold: threshold}
}

// Apply returns the narrowed candidate set. Metadata predicates (date range,
// file type, word-count bounds) narrow strictly and independently of topic
// scoring. Topic scoring drops candidates below the relevance threshold and
// sorts survivors by relevance; a general topic passes through unscored.
func (f *Filter) Apply(candidates []*models.Chunk, topic classify.Topic, filters *models.MetadataFilters) []*models.Chunk {
	if len(candidates) == 0 {
		return candidates
	}

	narrowed := applyPredicates(candidates, filters)
	if len(narrowed) == 0 {
		narrowed = candidates
	}

	if topic == classify.TopicGeneral {
		return narrowed
	}

	keywords := classify.Keywords(topic)
	type scored struct {
		chunk *models.Chunk
		score float64
	}
	survivors := make([]scored, 0, len(narrowed))
	for _, chunk := range narrowed {
		score := relevance(chunk, topic, keywords)
		if score >= f.threshold {
			survivors = append(survivors, scored{chunk: chunk, score: score})
		}
	}
	if len(survivors) == 0 {
		return narrowed
	}
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].chunk.ID < survivors[j].chunk.ID
	})
	out := make([]*models.Chunk, len(survivors))
	for i, s := range survivors {
		out[i] = s.chunk
	}
	return out
}

// relevance scores a chunk against the topic: keyword-in-content matches,
// exact topic-field match in metadata, and tag overlap.
func relevance(chunk *models.Chunk, topic classify.Topic, keywords []string) float64 {
	score := 0.0

	if len(keywords) > 0 {
		contentTokens := utils.TokenSet(chunk.Content)
		hits := 0
		for _, kw := range keywords {
			if _, ok := contentTokens[kw]; ok {
				hits++
			}
		}
		score += keywordWeight * float64(hits) / float64(len(keywords))
	}

	if strings.EqualFold(chunk.Topic, string(topic)) {
		score += topicFieldWeight
	}

	if len(chunk.Tags) > 0 {
		overlap := 0
		for _, tag := range chunk.Tags {
			lowered := strings.ToLower(tag)
			if lowered == string(topic) {
				overlap++
				continue
			}
			for _, kw := range keywords {
				if lowered == kw {
					overlap++
					break
				}
			}
		}
		score += tagWeight * float64(overlap) / float64(len(chunk.Tags))
	}

	return utils.Clamp01(score)
}

// applyPredicates applies the strict metadata predicates. nil filters pass
// everything through.
func applyPredicates(candidates []*models.Chunk, filters *models.MetadataFilters) []*models.Chunk {
	if filters == nil {
		return candidates
	}
	out := make([]*models.Chunk, 0, len(candidates))
	for _, chunk := range candidates {
		if filters.After != nil && chunk.UpdatedAt.Before(*filters.After) {
			continue
		}
		if filters.Before != nil && chunk.UpdatedAt.After(*filters.Before) {
			continue
		}
		if len(filters.FileTypes) > 0 && !matchesFileType(chunk, filters.FileTypes) {
			continue
		}
		if filters.MinWords > 0 && chunk.WordCount < filters.MinWords {
			continue
		}
		if filters.MaxWords > 0 && chunk.WordCount > filters.MaxWords {
			continue
		}
		out = append(out, chunk)
	}
	return out
}

func matchesFileType(chunk *models.Chunk, fileTypes []string) bool {
	ft, _ := chunk.Metadata["file_type"].(string)
	for _, want := range fileTypes {
		if strings.EqualFold(ft, want) {
			return true
		}
	}
	return false
}
