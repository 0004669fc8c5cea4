// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package curated

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// DefaultThreshold is the minimum similarity for a curated match.
const DefaultThreshold = types.DefaultCuratedThreshold

// tieEpsilon is the score difference below which two paraphrases are
// considered equally close.
const tieEpsilon = 1e-9

// No-match reasons.
const (
	ReasonBelowThreshold       = "below threshold"
	ReasonEmbeddingUnavailable = "embedding unavailable"
	ReasonDegraded             = "catalog embeddings unavailable"
	ReasonEmptyCatalog         = "empty catalog"
)

// Result is the outcome of a match: CuratedMatch or NoMatch.
type Result interface {
	isResult()
}

// CuratedMatch is a match at or above the threshold.
type CuratedMatch struct {
	Entry    types.CuratedEntry
	Question string
	Score    float64
}

// NoMatch reports why no entry was returned. BestScore is the closest
// paraphrase similarity seen, or 0 when nothing was compared.
type NoMatch struct {
	BestScore float64
	Reason    string
}

func (CuratedMatch) isResult() {}
func (NoMatch) isResult()      {}

type paraphrase struct {
	entry    int
	question string
	vector   []float32
}

// Matcher holds a catalog with precomputed paraphrase embeddings. It is
// read-only after construction and safe for concurrent use.
type Matcher struct {
	catalog     Catalog
	embedder    embed.Embedder
	threshold   float64
	paraphrases []paraphrase
	degraded    bool
	logger      *zap.Logger
}

// NewMatcher embeds every paraphrase of catalog once. If embedding fails
// the matcher is returned degraded and reports NoMatch for every query.
func NewMatcher(ctx context.Context, catalog Catalog, embedder embed.Embedder, threshold float64, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{catalog: catalog, embedder: embedder, threshold: threshold, logger: logger}

	var texts []string
	for i, e := range catalog.Entries {
		for _, q := range e.Questions {
			m.paraphrases = append(m.paraphrases, paraphrase{entry: i, question: q})
			texts = append(texts, q)
		}
	}
	if len(texts) == 0 {
		return m
	}

	vecs, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		logger.Warn("curated matcher degraded", zap.Int("paraphrases", len(texts)), zap.Error(err))
		m.degraded = true
		return m
	}
	for i := range m.paraphrases {
		m.paraphrases[i].vector = vecs[i]
	}
	logger.Debug("curated catalog embedded",
		zap.Int("entries", len(catalog.Entries)), zap.Int("paraphrases", len(texts)))
	return m
}

// Degraded reports whether paraphrase embeddings failed at load.
func (m *Matcher) Degraded() bool { return m.degraded }

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Catalog returns the loaded catalog.
func (m *Matcher) Catalog() Catalog { return m.catalog }

// Match embeds query and matches it against the catalog. An embedding
// failure yields NoMatch with ReasonEmbeddingUnavailable.
func (m *Matcher) Match(ctx context.Context, query string) Result {
	if r, ok := m.unusable(); ok {
		return r
	}
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		m.logger.Debug("curated check skipped", zap.Error(err))
		return NoMatch{Reason: ReasonEmbeddingUnavailable}
	}
	return m.MatchVector(vec)
}

// MatchVector matches an already embedded query. The highest scoring
// paraphrase wins; paraphrases of different entries within tieEpsilon of
// each other resolve to the entry with the lexicographically smaller id.
func (m *Matcher) MatchVector(vec []float32) Result {
	if r, ok := m.unusable(); ok {
		return r
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, p := range m.paraphrases {
		score := embed.Cosine(vec, p.vector)
		switch {
		case best < 0 || score > bestScore+tieEpsilon:
			best, bestScore = i, score
		case math.Abs(score-bestScore) <= tieEpsilon &&
			m.catalog.Entries[p.entry].ID < m.catalog.Entries[m.paraphrases[best].entry].ID:
			best, bestScore = i, math.Max(score, bestScore)
		}
	}

	if bestScore < m.threshold {
		return NoMatch{BestScore: bestScore, Reason: ReasonBelowThreshold}
	}
	p := m.paraphrases[best]
	return CuratedMatch{Entry: m.catalog.Entries[p.entry], Question: p.question, Score: bestScore}
}

func (m *Matcher) unusable() (Result, bool) {
	switch {
	case m.degraded:
		return NoMatch{Reason: ReasonDegraded}, true
	case len(m.paraphrases) == 0:
		return NoMatch{Reason: ReasonEmptyCatalog}, true
	}
	return nil, false
}
