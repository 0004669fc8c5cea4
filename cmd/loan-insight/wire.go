// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/curated"
	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/internal/intent"
	"github.com/arvindpandey4/loan-insight-assistant/internal/llm"
	"github.com/arvindpandey4/loan-insight-assistant/internal/pipeline"
	"github.com/arvindpandey4/loan-insight-assistant/internal/synth"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// newEmbedder returns the remote embedder when a base URL is configured and
// the local hashing embedder otherwise.
func newEmbedder(c types.EmbeddingConfig, logger *zap.Logger) embed.Embedder {
	if c.BaseURL == "" {
		return embed.NewHashEmbedder(c.Dimension)
	}
	return embed.NewHTTPEmbedder(c, logger)
}

// newCompleter returns the hosted model client, or nil when no API key is
// configured.
func newCompleter(c types.LLMConfig, logger *zap.Logger) llm.Completer {
	if b := llm.NewClaudeBackend(c, logger); b != nil {
		return b
	}
	return nil
}

// openIndex loads the case index and checks that its vectors match the
// embedder. Either failure is fatal.
func openIndex(ctx context.Context, c types.Config, emb embed.Embedder, logger *zap.Logger) (*index.Index, error) {
	idx, err := index.Open(ctx, c.Index, logger)
	if err != nil {
		return nil, fmt.Errorf("similarity index unavailable: %w", err)
	}
	if idx.Dimension() != emb.Dimension() {
		return nil, fmt.Errorf("similarity index unavailable: %w: index vectors have %d dimensions, embedder produces %d",
			index.ErrDimensionMismatch, idx.Dimension(), emb.Dimension())
	}
	return idx, nil
}

func newMatcher(ctx context.Context, c types.Config, emb embed.Embedder, logger *zap.Logger) (*curated.Matcher, error) {
	cat, err := curated.LoadCatalog(c.Curated.Catalog)
	if err != nil {
		return nil, err
	}
	return curated.NewMatcher(ctx, cat, emb, c.Curated.Threshold, logger), nil
}

// buildPipeline wires every stage from configuration.
func buildPipeline(ctx context.Context, c types.Config, reg prometheus.Registerer, logger *zap.Logger) (*pipeline.Pipeline, error) {
	emb := newEmbedder(c.Embedding, logger)
	idx, err := openIndex(ctx, c, emb, logger)
	if err != nil {
		return nil, err
	}
	matcher, err := newMatcher(ctx, c, emb, logger)
	if err != nil {
		return nil, err
	}
	if matcher.Degraded() {
		logger.Warn("curated catalog could not be embedded; curated answers disabled")
	}

	model := newCompleter(c.LLM, logger)
	if model == nil {
		logger.Info("no language model API key; using keyword intent rules and templated answers")
	}

	return pipeline.New(pipeline.Deps{
		Embedder:    emb,
		Matcher:     matcher,
		Classifier:  intent.New(model, c.LLM.Timeout, logger),
		Index:       idx,
		Synthesizer: synth.New(model, c.LLM.Timeout, logger),
		Logger:      logger,
		Metrics:     pipeline.NewMetrics(reg),
	}, pipeline.Config{
		TopK:           c.Retrieval.TopK,
		MaxQueryLength: c.Pipeline.MaxQueryLength,
	})
}
