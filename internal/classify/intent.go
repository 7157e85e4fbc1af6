package classify

import (
	"regexp"
	"strings"
)

// Intent is the pragmatic purpose of a query, from a fixed set.
type Intent string

const (
	IntentDefinition  Intent = "definition"
	IntentHowTo       Intent = "how-to"
	IntentExplanation Intent = "explanation"
	IntentComparison  Intent = "comparison"
	IntentExample     Intent = "example"
	IntentInformation Intent = "information"
)

// intentPatterns are checked in order; the first match wins.
// IntentInformation is the fallback when nothing matches.
var intentPatterns = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{IntentComparison, regexp.MustCompile(`\b(vs|versus|compared? (to|with)|difference between|better than)\b`)},
	{IntentDefinition, regexp.MustCompile(`\b(what is|what are|define|definition of|meaning of)\b`)},
	{IntentHowTo, regexp.MustCompile(`\b(how (do|to|can|should)|steps to|guide (for|to))\b`)},
	{IntentExample, regexp.MustCompile(`\b(examples? of|for (example|instance)|such as|sample)\b`)},
	{IntentExplanation, regexp.MustCompile(`\b(why|explain|reason|because of|what causes)\b`)},
}

// DetectIntent classifies the pragmatic purpose of the query text using
// lightweight pattern matching. Pure function.
func DetectIntent(text string) Intent {
	lowered := strings.ToLower(text)
	for _, p := range intentPatterns {
		if p.pattern.MatchString(lowered) {
			return p.intent
		}
	}
	return IntentInformation
}
