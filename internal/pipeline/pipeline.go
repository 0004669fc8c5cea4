// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline resolves loan questions. A request first tries the
// curated catalog; otherwise its intent is classified, similar historical
// records are retrieved, and an evidence-backed explanation is synthesized.
// Every stage that depends on an external service has a deterministic
// fallback, so the only surfaced error is an invalid query.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/curated"
	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/internal/intent"
	"github.com/arvindpandey4/loan-insight-assistant/internal/synth"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// ErrInvalidQuery is returned for queries rejected at the boundary.
var ErrInvalidQuery = errors.New("invalid query")

// State is a step of the resolution state machine.
type State string

const (
	StateStart        State = "START"
	StateCuratedCheck State = "CURATED_CHECK"
	StateIntentDetect State = "INTENT_DETECT"
	StateRetrieve     State = "RETRIEVE"
	StateSynthesize   State = "SYNTHESIZE"
	StateNoEvidence   State = "NO_EVIDENCE"
	StateDone         State = "DONE"
)

// Searcher ranks historical records against a query.
type Searcher interface {
	Search(query []float32, k int) (index.Result, error)
	SearchFiltered(query []float32, k int, filters types.Filters) (index.Result, error)
	SearchText(query string, k int) (index.Result, error)
	SearchTextFiltered(query string, k int, filters types.Filters) (index.Result, error)
}

// Deps are the read-only collaborators shared by all requests.
type Deps struct {
	Embedder    embed.Embedder
	Matcher     *curated.Matcher
	Classifier  *intent.Classifier
	Index       Searcher
	Synthesizer *synth.Synthesizer
	Logger      *zap.Logger

	// Metrics may be nil; a private registry is used then.
	Metrics *Metrics
}

// Config bounds request handling.
type Config struct {
	// TopK is the number of records retrieved (default 5).
	TopK int

	// MaxQueryLength is the longest accepted query in runes (default 1000).
	MaxQueryLength int
}

// Trace records how one request was resolved.
type Trace struct {
	RequestID string
	States    []State

	// CuratedID is the matched entry id on the curated path.
	CuratedID string

	// CuratedScore is the best catalog similarity, matched or not.
	CuratedScore float64

	// NoMatchReason explains a missed curated check.
	NoMatchReason string

	Intent types.QueryIntent

	// FilterRetry is set when the filtered search was empty and an
	// unfiltered search was run.
	FilterRetry bool

	// Lexical is set when retrieval ranked by term overlap because no
	// query embedding was available.
	Lexical bool

	// Synthesis is the path that produced a synthesized answer.
	Synthesis types.Method
}

func (t *Trace) enter(s State) { t.States = append(t.States, s) }

// Pipeline is the query orchestrator. It holds no per-request state and is
// safe for concurrent use.
type Pipeline struct {
	deps    Deps
	cfg     Config
	logger  *zap.Logger
	metrics *Metrics
}

// New validates deps and returns a Pipeline. A missing index is an error:
// the pipeline cannot serve without one.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	if deps.Index == nil {
		return nil, errors.New("similarity index unavailable")
	}
	if deps.Embedder == nil || deps.Matcher == nil || deps.Classifier == nil || deps.Synthesizer == nil {
		return nil, errors.New("pipeline: embedder, matcher, classifier and synthesizer are required")
	}
	if cfg.TopK < 1 {
		cfg.TopK = types.DefaultTopK
	}
	if cfg.MaxQueryLength < 1 {
		cfg.MaxQueryLength = types.DefaultMaxQueryLength
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Pipeline{deps: deps, cfg: cfg, logger: logger, metrics: metrics}, nil
}

// Resolve answers query given the caller's recent conversation.
func (p *Pipeline) Resolve(ctx context.Context, query string, conv types.Conversation) (types.InsightResponse, error) {
	resp, _, err := p.ResolveTrace(ctx, query, conv)
	return resp, err
}

// ResolveTrace is Resolve that also reports the path taken.
func (p *Pipeline) ResolveTrace(ctx context.Context, query string, conv types.Conversation) (types.InsightResponse, Trace, error) {
	trace := Trace{RequestID: uuid.NewString()}
	conv, err := p.validate(query, conv)
	if err != nil {
		p.metrics.Resolutions.WithLabelValues("invalid").Inc()
		return types.InsightResponse{}, trace, err
	}
	if err := ctx.Err(); err != nil {
		return types.InsightResponse{}, trace, err
	}

	query = strings.TrimSpace(query)
	log := p.logger.With(zap.String("request_id", trace.RequestID))
	trace.enter(StateStart)

	// CURATED_CHECK
	trace.enter(StateCuratedCheck)
	start := time.Now()
	vec, embErr := p.deps.Embedder.Embed(ctx, query)
	var match curated.Result
	if embErr != nil {
		p.metrics.Fallbacks.WithLabelValues(StageEmbedding).Inc()
		log.Info("query embedding failed, curated check skipped", zap.Error(embErr))
		match = curated.NoMatch{Reason: curated.ReasonEmbeddingUnavailable}
	} else {
		match = p.deps.Matcher.MatchVector(vec)
	}
	p.observe(StateCuratedCheck, start)

	switch m := match.(type) {
	case curated.CuratedMatch:
		trace.CuratedID, trace.CuratedScore = m.Entry.ID, m.Score
		trace.enter(StateDone)
		p.metrics.Resolutions.WithLabelValues("curated").Inc()
		log.Debug("curated answer", zap.String("entry", m.Entry.ID), zap.Float64("score", m.Score))
		return curatedResponse(m.Entry), trace, nil
	case curated.NoMatch:
		trace.NoMatchReason, trace.CuratedScore = m.Reason, m.BestScore
		if m.Reason == curated.ReasonDegraded {
			p.metrics.Fallbacks.WithLabelValues(StageCurated).Inc()
		}
	}

	// INTENT_DETECT
	trace.enter(StateIntentDetect)
	start = time.Now()
	qi := p.deps.Classifier.Classify(ctx, query, conv)
	p.observe(StateIntentDetect, start)
	trace.Intent = qi
	if qi.Method == types.MethodFallback {
		p.metrics.Fallbacks.WithLabelValues(StageIntent).Inc()
	}
	log.Debug("intent detected",
		zap.String("category", string(qi.Category)),
		zap.String("filters", qi.Filters.String()),
		zap.String("method", string(qi.Method)))

	// RETRIEVE
	trace.enter(StateRetrieve)
	start = time.Now()
	if vec == nil {
		if vec, embErr = p.deps.Embedder.Embed(ctx, query); embErr != nil {
			log.Info("query embedding still unavailable, ranking by term overlap", zap.Error(embErr))
		}
	}
	hits := p.retrieve(ctx, log, query, vec, qi.Filters, &trace)
	p.observe(StateRetrieve, start)

	if len(hits) == 0 {
		trace.enter(StateNoEvidence)
		trace.enter(StateDone)
		p.metrics.Resolutions.WithLabelValues("no_evidence").Inc()
		return synth.InsufficientData(qi), trace, nil
	}

	// SYNTHESIZE
	trace.enter(StateSynthesize)
	start = time.Now()
	resp, method := p.deps.Synthesizer.Synthesize(ctx, query, qi, hits, conv)
	p.observe(StateSynthesize, start)
	trace.Synthesis = method
	if method == types.MethodFallback {
		p.metrics.Fallbacks.WithLabelValues(StageSynthesis).Inc()
	}
	trace.enter(StateDone)
	p.metrics.Resolutions.WithLabelValues("synthesized").Inc()
	log.Debug("query resolved",
		zap.Strings("case_ids", resp.RetrievedCaseIDs), zap.String("synthesis", string(method)))
	return resp, trace, nil
}

// retrieve runs the filtered search and, if it is empty while filters were
// set, one unfiltered search. Without a usable vector it ranks by term
// overlap under the same rule.
func (p *Pipeline) retrieve(ctx context.Context, log *zap.Logger, query string, vec []float32, filters types.Filters, trace *Trace) []types.ScoredRecord {
	search := func(f types.Filters) index.Result {
		if vec != nil && !trace.Lexical {
			var hits index.Result
			var err error
			if f.IsEmpty() {
				hits, err = p.deps.Index.Search(vec, p.cfg.TopK)
			} else {
				hits, err = p.deps.Index.SearchFiltered(vec, p.cfg.TopK, f)
			}
			if err == nil {
				return hits
			}
			log.Warn("vector search failed, ranking by term overlap", zap.Error(err))
		}
		if !trace.Lexical {
			trace.Lexical = true
			p.metrics.Fallbacks.WithLabelValues(StageRetrieval).Inc()
		}
		var hits index.Result
		var err error
		if f.IsEmpty() {
			hits, err = p.deps.Index.SearchText(query, p.cfg.TopK)
		} else {
			hits, err = p.deps.Index.SearchTextFiltered(query, p.cfg.TopK, f)
		}
		if err != nil {
			log.Warn("term search failed", zap.Error(err))
			return nil
		}
		return hits
	}

	hits := search(filters)
	if len(hits) == 0 && !filters.IsEmpty() && ctx.Err() == nil {
		trace.FilterRetry = true
		p.metrics.FilterRetries.Inc()
		log.Debug("filtered search empty, retrying without filters", zap.String("filters", filters.String()))
		hits = search(types.Filters{})
	}
	return hits
}

// validate checks query and returns the turns of conv the request reads,
// each cut to MaxQueryLength runes. Older turns are not inspected.
func (p *Pipeline) validate(query string, conv types.Conversation) (types.Conversation, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidQuery)
	}
	if n := utf8.RuneCountInString(query); n > p.cfg.MaxQueryLength {
		return nil, fmt.Errorf("%w: query has %d characters, limit is %d", ErrInvalidQuery, n, p.cfg.MaxQueryLength)
	}
	recent := conv.Recent()
	if err := recent.Validate(); err != nil {
		return nil, fmt.Errorf("%w: conversation: %v", ErrInvalidQuery, err)
	}
	out := make(types.Conversation, len(recent))
	for i, t := range recent {
		if r := []rune(t.Text); len(r) > p.cfg.MaxQueryLength {
			t.Text = string(r[:p.cfg.MaxQueryLength])
		}
		out[i] = t
	}
	return out, nil
}

func (p *Pipeline) observe(s State, start time.Time) {
	p.metrics.StageLatency.WithLabelValues(string(s)).Observe(time.Since(start).Seconds())
}

// curatedResponse serves entry's answer verbatim with the compliance
// disclaimer and no retrieval results.
func curatedResponse(entry types.CuratedEntry) types.InsightResponse {
	resp := types.InsightResponse{
		Answer:               entry.Answer,
		ComplianceDisclaimer: synth.Disclaimer,
		Source:               types.SourceCurated,
	}
	resp.Normalize()
	return resp
}
