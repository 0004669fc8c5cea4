// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the loan-insight CLI. It answers
// questions about historical loan decisions from a curated catalog or from
// similar historical cases, and inspects the catalog and the case index.
package main

import (
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/config"
	"github.com/arvindpandey4/loan-insight-assistant/internal/logging"
	"github.com/arvindpandey4/loan-insight-assistant/internal/secrets"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Resolved at startup by PersistentPreRunE.
var (
	cfg    types.Config
	logger = zap.NewNop()
)

// rootCmd is the base command for the loan-insight CLI.
var rootCmd = &cobra.Command{
	Use:   "loan-insight",
	Short: "Evidence-backed answers about historical loan decisions",
	Long: `loan-insight answers natural-language questions about historical loan
decisions. Common questions are served from a curated catalog; everything else
is answered from the most similar historical cases, with evidence points, risk
notes and a compliance disclaimer. Answers describe past decisions only and are
never a prediction for a new applicant.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: ./loan-insight.yaml or ~/.config/loan-insight/loan-insight.yaml)")
	rootCmd.PersistentFlags().String("secrets-dir", ".secrets", "directory of API key files")
}

// setup resolves configuration, builds the logger, and fills API keys from
// the secrets directory when the configuration leaves them empty.
func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	v := viper.GetViper()
	config.Setup(v, path)
	used, err := config.Read(v)
	if err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}

	l, err := logging.New(c.Log)
	if err != nil {
		return err
	}
	logger = l
	if used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}

	dir, _ := cmd.Flags().GetString("secrets-dir")
	s, err := secrets.Load(dir, logger)
	if err != nil {
		return err
	}
	if len(s) > 0 {
		keys := make([]string, 0, len(s))
		for k := range s {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		logger.Debug("loaded secrets", zap.Strings("keys", keys))
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = s.Resolve(secrets.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = s.Resolve(secrets.EmbeddingAPIKey, "EMBEDDING_API_KEY")
	}
	cfg = c
	return nil
}

func main() {
	defer func() { _ = logger.Sync() }()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
