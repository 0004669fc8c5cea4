// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

func load(t *testing.T, path string) types.Config {
	t.Helper()
	v := viper.New()
	Setup(v, path)
	_, err := Read(v)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := load(t, "")
	assert.Equal(t, types.DefaultConfig(), cfg)
	assert.Equal(t, 0.75, cfg.Curated.Threshold)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loan-insight.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
index:
  path: /srv/loans.db
curated:
  threshold: 0.8
retrieval:
  top_k: 3
embedding:
  base_url: http://localhost:11434
  timeout: 2s
log:
  format: json
`), 0o644))

	cfg := load(t, path)
	assert.Equal(t, "/srv/loans.db", cfg.Index.Path)
	assert.Equal(t, 0.8, cfg.Curated.Threshold)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Embedding.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)
	// Unset keys keep their defaults.
	assert.Equal(t, types.DefaultConfig().LLM, cfg.LLM)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LOAN_INSIGHT_RETRIEVAL_TOP_K", "7")
	t.Setenv("LOAN_INSIGHT_LLM_API_KEY", "sk-env")
	t.Setenv("LOAN_INSIGHT_LLM_TIMEOUT", "3s")

	cfg := load(t, "")
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, 3*time.Second, cfg.LLM.Timeout)
}

func TestReadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loan-insight.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [unclosed"), 0o644))

	v := viper.New()
	Setup(v, path)
	_, err := Read(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.Config)
		errMsg string
	}{
		{name: "defaults are valid", mutate: func(*types.Config) {}},
		{name: "threshold above one", mutate: func(c *types.Config) { c.Curated.Threshold = 1.5 }, errMsg: "curated.threshold"},
		{name: "zero top k", mutate: func(c *types.Config) { c.Retrieval.TopK = 0 }, errMsg: "retrieval.top_k"},
		{name: "zero dimension", mutate: func(c *types.Config) { c.Embedding.Dimension = 0 }, errMsg: "embedding.dimension"},
		{name: "zero llm timeout", mutate: func(c *types.Config) { c.LLM.Timeout = 0 }, errMsg: "llm.timeout"},
		{name: "missing index path", mutate: func(c *types.Config) { c.Index.Path = "" }, errMsg: "index.path"},
		{name: "zero query length", mutate: func(c *types.Config) { c.Pipeline.MaxQueryLength = 0 }, errMsg: "max_query_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
