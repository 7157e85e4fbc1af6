// Package classify assigns a topic and an intent to query text.
package classify

// Topic is a coarse subject-matter label from a fixed closed set. Each topic
// carries a precomputed centroid embedding and a keyword list; classification
// selects over the set in one place instead of scattering string comparisons.
type Topic string

const (
	TopicPhilosophy  Topic = "philosophy"
	TopicTechnology  Topic = "technology"
	TopicPerformance Topic = "performance"
	TopicBusiness    Topic = "business"
	TopicScience     Topic = "science"
	TopicGeneral     Topic = "general"
)

// topicProfile bundles the seed phrases the centroid is computed from and the
// keyword list used for the no-embedding fallback and the smart filter.
type topicProfile struct {
	topic    Topic
	seeds    []string
	keywords []string
}

// topicProfiles is the closed topic set. TopicGeneral has no profile: it is
// the below-threshold fallback, never matched directly.
var topicProfiles = []topicProfile{
	{
		topic: TopicPhilosophy,
		seeds: []string{
			"the nature of knowledge and truth",
			"ethics and moral reasoning",
			"logic and formal argument",
			"consciousness and the mind",
		},
		keywords: []string{"philosophy", "ethics", "logic", "epistemology", "metaphysics", "reasoning", "truth", "consciousness", "mathematics"},
	},
	{
		topic: TopicTechnology,
		seeds: []string{
			"software engineering and system design",
			"programming languages and tooling",
			"distributed systems and databases",
			"machine learning and artificial intelligence",
		},
		keywords: []string{"software", "programming", "code", "database", "system", "api", "algorithm", "machine", "learning", "technology"},
	},
	{
		topic: TopicPerformance,
		seeds: []string{
			"performance optimization and profiling",
			"latency throughput and benchmarks",
			"memory usage and resource efficiency",
			"caching and query tuning",
		},
		keywords: []string{"performance", "optimization", "latency", "throughput", "benchmark", "profiling", "cache", "tuning", "speed", "efficiency"},
	},
	{
		topic: TopicBusiness,
		seeds: []string{
			"business strategy and planning",
			"markets revenue and growth",
			"product management and customers",
			"startup funding and operations",
		},
		keywords: []string{"business", "strategy", "market", "revenue", "customer", "product", "startup", "sales", "growth", "management"},
	},
	{
		topic: TopicScience,
		seeds: []string{
			"scientific method and experiments",
			"physics chemistry and biology",
			"research papers and evidence",
			"statistics and data analysis",
		},
		keywords: []string{"science", "experiment", "physics", "chemistry", "biology", "research", "hypothesis", "statistics", "data", "evidence"},
	},
}

// Topics returns the closed topic set including the general fallback.
func Topics() []Topic {
	out := make([]Topic, 0, len(topicProfiles)+1)
	for _, p := range topicProfiles {
		out = append(out, p.topic)
	}
	return append(out, TopicGeneral)
}

// Keywords returns the keyword list for topic, or nil for TopicGeneral.
func Keywords(topic Topic) []string {
	for _, p := range topicProfiles {
		if p.topic == topic {
			return p.keywords
		}
	}
	return nil
}
