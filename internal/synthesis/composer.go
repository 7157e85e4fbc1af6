package synthesis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const defaultMaxContextChars = 8000

// Composer assembles the synthesis prompt from the question, the conversation
// topic, and the ranked evidence, respecting a character budget by dropping
// lowest-scoring evidence first.
type Composer struct {
	MaxContextChars int
}

// NewComposer creates a composer. If maxContextChars <= 0, the default is used.
func NewComposer(maxContextChars int) *Composer {
	if maxContextChars <= 0 {
		maxContextChars = defaultMaxContextChars
	}
	return &Composer{MaxContextChars: maxContextChars}
}

// Compose builds the prompt handed to the synthesis capability.
func (c *Composer) Compose(query, topic string, evidence []*models.SearchResult) string {
	var sb strings.Builder
	sb.WriteString("Answer the question using only the notes below. ")
	sb.WriteString("If the notes do not contain the answer, say so.\n")
	if topic != "" && topic != "general" {
		fmt.Fprintf(&sb, "Conversation topic: %s\n", topic)
	}

	sorted := make([]*models.SearchResult, len(evidence))
	copy(sorted, evidence)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].FinalScore > sorted[j].FinalScore
	})

	sb.WriteString("\n[Notes]\n")
	used := sb.Len()
	for i, r := range sorted {
		heading := r.Chunk.Heading()
		if heading == "" {
			heading = r.Chunk.NoteID
		}
		block := fmt.Sprintf("%d. (%s) %s\n", i+1, heading, utils.Truncate(r.Chunk.Content, 1500))
		if used+len(block) > c.MaxContextChars {
			break
		}
		sb.WriteString(block)
		used += len(block)
	}

	fmt.Fprintf(&sb, "\n[Question]\n%s\n", query)
	return sb.String()
}
