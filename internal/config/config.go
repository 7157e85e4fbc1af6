// Package config provides configuration loading and structs for the kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Memory    MemoryConfig    `yaml:"memory"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Quality   QualityConfig   `yaml:"quality"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig holds embedding capability settings.
type EmbeddingConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`
	CacheSize  int           `yaml:"cache_size"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

// SearchConfig holds retrieval, fusion, and re-ranking settings.
// The scoring constants are hand-tuned defaults, not contracts; override per
// deployment as needed.
type SearchConfig struct {
	TopKCandidates int     `yaml:"top_k_candidates"`
	VectorWeight   float64 `yaml:"vector_weight"`
	KeywordWeight  float64 `yaml:"keyword_weight"`

	// Lexical overlap bonuses (keyword scorer).
	PhraseBonus  float64 `yaml:"phrase_bonus"`
	HeadingBonus float64 `yaml:"heading_bonus"`

	// Topic classification and smart filtering.
	TopicThreshold  float64 `yaml:"topic_threshold"`
	FilterThreshold float64 `yaml:"filter_threshold"`

	// Cross-encoder re-ranking.
	RerankEnabled    bool          `yaml:"rerank_enabled"`
	RerankEndpoint   string        `yaml:"rerank_endpoint"`
	RerankTopK       int           `yaml:"rerank_top_k"`
	RerankTimeout    time.Duration `yaml:"rerank_timeout"`
	SimilarityWeight float64       `yaml:"similarity_weight"`
	RerankWeight     float64       `yaml:"rerank_weight"`
}

// MemoryConfig holds conversational memory settings.
type MemoryConfig struct {
	Capacity      int `yaml:"capacity"`
	RecentResults int `yaml:"recent_results"`
}

// SynthesisConfig holds LLM synthesis capability settings.
type SynthesisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// QualityConfig holds quality evaluator settings.
type QualityConfig struct {
	BufferSize int `yaml:"buffer_size"`
	EvalTopK   int `yaml:"eval_top_k"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
