// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config resolves the service configuration from defaults, an
// optional YAML file, and LOAN_INSIGHT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// LOAN_INSIGHT_RETRIEVAL_TOP_K.
const EnvPrefix = "LOAN_INSIGHT"

// FileName is the config file base name searched for in "." and
// ~/.config/loan-insight/.
const FileName = "loan-insight"

// Setup points v at the config file and environment. An explicit path wins
// over the search paths. It registers defaults so that environment
// variables resolve for keys absent from the file.
func Setup(v *viper.Viper, path string) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", FileName))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
}

// SetDefaults registers every key of types.DefaultConfig on v.
func SetDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("curated.catalog", d.Curated.Catalog)
	v.SetDefault("curated.threshold", d.Curated.Threshold)
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("pipeline.max_query_length", d.Pipeline.MaxQueryLength)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Read loads the config file if one is present. A missing file is not an
// error; it returns the file used, or "" when none was found.
func Read(v *viper.Viper) (string, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// Load decodes v into a validated Config.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges of the tunable constants.
func Validate(cfg types.Config) error {
	var errs []error
	if cfg.Curated.Threshold <= 0 || cfg.Curated.Threshold > 1 {
		errs = append(errs, fmt.Errorf("curated.threshold %v must be in (0, 1]", cfg.Curated.Threshold))
	}
	if cfg.Retrieval.TopK < 1 {
		errs = append(errs, fmt.Errorf("retrieval.top_k %d must be at least 1", cfg.Retrieval.TopK))
	}
	if cfg.Embedding.Dimension < 1 {
		errs = append(errs, fmt.Errorf("embedding.dimension %d must be at least 1", cfg.Embedding.Dimension))
	}
	if cfg.Embedding.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("embedding.timeout must be positive"))
	}
	if cfg.LLM.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	if cfg.Pipeline.MaxQueryLength < 1 {
		errs = append(errs, fmt.Errorf("pipeline.max_query_length %d must be at least 1", cfg.Pipeline.MaxQueryLength))
	}
	if cfg.Index.Path == "" {
		errs = append(errs, fmt.Errorf("index.path is required"))
	}
	return errors.Join(errs...)
}
