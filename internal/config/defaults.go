package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/db/chunks.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/kotae/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/kotae/data/indices/vectors.bin"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTL == 0 {
		cfg.Embedding.CacheTTL = time.Hour
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 100
	}
	if cfg.Search.VectorWeight == 0 && cfg.Search.KeywordWeight == 0 {
		cfg.Search.VectorWeight = 0.7
		cfg.Search.KeywordWeight = 0.3
	}
	if cfg.Search.PhraseBonus == 0 {
		cfg.Search.PhraseBonus = 0.5
	}
	if cfg.Search.HeadingBonus == 0 {
		cfg.Search.HeadingBonus = 0.2
	}
	if cfg.Search.TopicThreshold == 0 {
		cfg.Search.TopicThreshold = 0.3
	}
	if cfg.Search.FilterThreshold == 0 {
		cfg.Search.FilterThreshold = 0.25
	}
	if cfg.Search.RerankTopK == 0 {
		cfg.Search.RerankTopK = 10
	}
	if cfg.Search.RerankTimeout == 0 {
		cfg.Search.RerankTimeout = 5 * time.Second
	}
	if cfg.Search.SimilarityWeight == 0 && cfg.Search.RerankWeight == 0 {
		cfg.Search.SimilarityWeight = 0.3
		cfg.Search.RerankWeight = 0.7
	}
	if cfg.Memory.Capacity == 0 {
		cfg.Memory.Capacity = 50
	}
	if cfg.Memory.RecentResults == 0 {
		cfg.Memory.RecentResults = 5
	}
	if cfg.Synthesis.Timeout == 0 {
		cfg.Synthesis.Timeout = 30 * time.Second
	}
	if cfg.Quality.BufferSize == 0 {
		cfg.Quality.BufferSize = 256
	}
	if cfg.Quality.EvalTopK == 0 {
		cfg.Quality.EvalTopK = 5
	}
}
