// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/arvindpandey4/loan-insight-assistant/internal/httputil"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// HTTPEmbedder calls an Ollama-compatible /api/embeddings endpoint.
type HTTPEmbedder struct {
	baseURL     string
	model       string
	apiKey      string
	dim         int
	timeout     time.Duration
	concurrency int
	client      *http.Client
	logger      *zap.Logger
}

// NewHTTPEmbedder returns an HTTPEmbedder for cfg. cfg.BaseURL must be set.
func NewHTTPEmbedder(cfg types.EmbeddingConfig, logger *zap.Logger) *HTTPEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &HTTPEmbedder{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		dim:         cfg.Dimension,
		timeout:     cfg.Timeout,
		concurrency: concurrency,
		client:      &http.Client{},
		logger:      logger,
	}
}

func (e *HTTPEmbedder) Dimension() int { return e.dim }

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the normalized vector for text. Every failure, including a
// dimension mismatch, wraps ErrUnavailable.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	v, err := e.call(ctx, text)
	if err != nil {
		e.logger.Debug("embedding call failed", zap.String("model", e.model), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if e.dim > 0 && len(v) != e.dim {
		return nil, fmt.Errorf("%w: got %d dimensions, want %d", ErrUnavailable, len(v), e.dim)
	}
	return Normalize(v), nil
}

// EmbedBatch embeds texts concurrently, bounded by the configured
// concurrency, and returns vectors in input order. The first failure
// cancels the remaining calls.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *HTTPEmbedder) call(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := httputil.DoWithRetry(ctx, e.client, req, 1)
	if err != nil {
		return nil, fmt.Errorf("calling embedding endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return er.Embedding, nil
}
