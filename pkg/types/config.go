package types

import "time"

// IndexConfig locates the historical-record corpus.
type IndexConfig struct {
	// Path is the SQLite database written by the ingestion job.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// CuratedConfig holds settings for the curated-answer matcher.
type CuratedConfig struct {
	// Catalog is the YAML catalog path. Empty selects the built-in catalog.
	Catalog string `json:"catalog" yaml:"catalog" mapstructure:"catalog"`

	// Threshold is the minimum cosine similarity for a curated match (default 0.75).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
}

// RetrievalConfig holds settings for similarity retrieval.
type RetrievalConfig struct {
	// TopK is the number of records retrieved per query (default 5).
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k"`
}

// EmbeddingConfig holds settings for the embedding service.
type EmbeddingConfig struct {
	// BaseURL is an Ollama-compatible endpoint (e.g. "http://localhost:11434").
	// Empty selects the local hashing embedder.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is sent as a bearer token when set.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Dimension is the expected vector length (default 256).
	Dimension int `json:"dimension" yaml:"dimension" mapstructure:"dimension"`

	// Timeout bounds one embedding call (default 5s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// Concurrency bounds parallel requests in a batch (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// LLMConfig holds shared settings for calls to the hosted language model.
type LLMConfig struct {
	// Model is the model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key. Empty disables the model path.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// MaxRetries is the number of retry attempts on rate limiting (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// MaxTokens caps the completion length (default 1024).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Timeout bounds one completion call (default 20s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// PipelineConfig holds boundary settings for query resolution.
type PipelineConfig struct {
	// MaxQueryLength is the longest accepted query in runes (default 1000).
	MaxQueryLength int `json:"max_query_length" yaml:"max_query_length" mapstructure:"max_query_length"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json" (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all settings of the loan insight service.
type Config struct {
	Index     IndexConfig     `json:"index" yaml:"index" mapstructure:"index"`
	Curated   CuratedConfig   `json:"curated" yaml:"curated" mapstructure:"curated"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval" mapstructure:"retrieval"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding" mapstructure:"embedding"`
	LLM       LLMConfig       `json:"llm" yaml:"llm" mapstructure:"llm"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// Defaults for the tunable constants.
const (
	DefaultCuratedThreshold = 0.75
	DefaultTopK             = 5
	DefaultMaxQueryLength   = 1000
	DefaultEmbedDimension   = 256
)

// DefaultConfig returns the configuration used when no file or
// environment override is present.
func DefaultConfig() Config {
	return Config{
		Index: IndexConfig{Path: "data/loans.db"},
		Curated: CuratedConfig{
			Threshold: DefaultCuratedThreshold,
		},
		Retrieval: RetrievalConfig{TopK: DefaultTopK},
		Embedding: EmbeddingConfig{
			Model:       "nomic-embed-text",
			Dimension:   DefaultEmbedDimension,
			Timeout:     5 * time.Second,
			Concurrency: 4,
		},
		LLM: LLMConfig{
			Model:      "claude-sonnet-4-5-20250929",
			MaxRetries: 2,
			MaxTokens:  1024,
			Timeout:    20 * time.Second,
		},
		Pipeline: PipelineConfig{MaxQueryLength: DefaultMaxQueryLength},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}
