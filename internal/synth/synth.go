// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package synth turns retrieved historical records into an evidence-backed
// explanation. The hosted model writes the explanation when it is available
// and its output passes structural checks; otherwise a deterministic
// template over the retrieved set is used. Every response carries the
// compliance disclaimer.
package synth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/internal/llm"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

const (
	minEvidence  = 2
	maxEvidence  = 5
	maxRiskNotes = 3
)

// predictivePhrases mark output that reads as a decision about an applicant.
var predictivePhrases = []string{
	"you will be approved", "you will be rejected", "you will get",
	"will be approved", "will be rejected", "will definitely",
	"guaranteed", "guarantee", "certain to be approved", "certain to be rejected",
}

const systemPrompt = `You explain historical loan decisions to loan officers using only the evidence provided.
Rules:
- Generalize only from the listed cases. Never invent cases or attributes.
- Never predict, recommend or promise an approval or rejection for any applicant.
- Every evidence point must cite a case id or an attribute value from the listed cases.
Respond with a single JSON object and nothing else.`

// toneGuides are the writing instructions for each non-neutral tone.
var toneGuides = map[types.Tone]string{
	types.ToneAudit:    "Write for an audit record: name the case ids behind every statement and keep to recorded facts.",
	types.ToneBusiness: "Write for a business reader: lead with the overall pattern and the share of cases it covers.",
}

var promptTmpl = template.Must(template.New("synthesis").Parse(`Question: {{.Query}}
Detected intent: {{.Intent}}
{{with .ToneGuide}}{{.}}
{{end}}{{if .Conversation}}
Recent conversation (oldest first):
{{range .Conversation}}{{.Role}}: {{.Text}}
{{end}}{{end}}
Retrieved historical cases (most similar first):
{{range .Digest}}- {{.Line}}
{{end}}
Write:
- "answer": a short plain-language explanation of what these cases show.
- "evidence_points": {{.MinEvidence}} to 5 bullet strings, each citing specific cases or attributes above.
- "risk_notes": 0 to 3 strings naming recorded risk factors{{if .NeedsRisk}} (at least one is required for this question when any listed case was rejected){{end}}.

Respond with JSON of this shape:
{"answer": "...", "evidence_points": ["..."], "risk_notes": ["..."]}
`))

// Synthesizer produces InsightResponses from retrieved records.
type Synthesizer struct {
	model   llm.Completer
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Synthesizer. A nil model selects the template only.
func New(model llm.Completer, timeout time.Duration, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{model: model, timeout: timeout, logger: logger}
}

// Synthesize explains hits in answer to query. It reports which path
// produced the response. With no hits it returns InsufficientData without
// calling the model.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, intent types.QueryIntent, hits []types.ScoredRecord, conv types.Conversation) (types.InsightResponse, types.Method) {
	if len(hits) == 0 {
		return InsufficientData(intent), types.MethodFallback
	}
	if s.model == nil {
		return Template(intent, hits), types.MethodFallback
	}

	resp, err := s.synthesizeModel(ctx, query, intent, hits, conv.Recent())
	if err != nil {
		s.logger.Info("synthesis model path failed, using template",
			zap.Bool("invalid_output", errors.Is(err, llm.ErrOutputInvalid)), zap.Error(err))
		return Template(intent, hits), types.MethodFallback
	}
	return resp, types.MethodModel
}

type modelAnswer struct {
	Answer         string   `json:"answer"`
	EvidencePoints []string `json:"evidence_points"`
	RiskNotes      []string `json:"risk_notes"`
}

func (s *Synthesizer) synthesizeModel(ctx context.Context, query string, intent types.QueryIntent, hits []types.ScoredRecord, conv types.Conversation) (types.InsightResponse, error) {
	digest := BuildDigest(hits)

	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct {
		Query        string
		Intent       types.IntentCategory
		ToneGuide    string
		Conversation types.Conversation
		Digest       []DigestEntry
		MinEvidence  int
		NeedsRisk    bool
	}{
		Query:        query,
		Intent:       intent.Category,
		ToneGuide:    toneGuides[intent.Tone],
		Conversation: conv,
		Digest:       digest,
		MinEvidence:  requiredEvidence(digest),
		NeedsRisk:    intent.Category.NeedsRiskNotes(),
	}); err != nil {
		return types.InsightResponse{}, fmt.Errorf("rendering prompt: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.model.Complete(ctx, llm.Request{
		System:   systemPrompt,
		Messages: []llm.Message{{Role: "user", Content: buf.String()}},
	})
	if err != nil {
		if errors.Is(err, llm.ErrOutputInvalid) || errors.Is(err, llm.ErrUnavailable) {
			return types.InsightResponse{}, err
		}
		return types.InsightResponse{}, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}

	var ans modelAnswer
	if err := llm.DecodeJSON(reply, &ans); err != nil {
		return types.InsightResponse{}, err
	}
	ans = ans.trimmed()
	if err := validate(ans, intent, digest); err != nil {
		return types.InsightResponse{}, err
	}

	resp := types.InsightResponse{
		Answer:               ans.Answer,
		EvidencePoints:       ans.EvidencePoints,
		RiskNotes:            ans.RiskNotes,
		ComplianceDisclaimer: Disclaimer,
		Source:               types.SourceRetrieved,
		RetrievedCaseIDs:     index.Result(hits).CaseIDs(),
		RetrievedCases:       index.Result(hits).Cases(),
		Intent:               &intent,
		Retrieved:            hits,
	}
	resp.Normalize()
	return resp, nil
}

func (a modelAnswer) trimmed() modelAnswer {
	clean := func(in []string) []string {
		var out []string
		for _, s := range in {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return modelAnswer{
		Answer:         strings.TrimSpace(a.Answer),
		EvidencePoints: clean(a.EvidencePoints),
		RiskNotes:      clean(a.RiskNotes),
	}
}

func requiredEvidence(digest []DigestEntry) int {
	return min(minEvidence, len(digest))
}

// validate applies the structural checks a model answer must pass.
func validate(a modelAnswer, intent types.QueryIntent, digest []DigestEntry) error {
	if a.Answer == "" {
		return fmt.Errorf("%w: empty answer", llm.ErrOutputInvalid)
	}
	if n := len(a.EvidencePoints); n < requiredEvidence(digest) || n > maxEvidence {
		return fmt.Errorf("%w: %d evidence points, want %d to %d", llm.ErrOutputInvalid, n, requiredEvidence(digest), maxEvidence)
	}
	if len(a.RiskNotes) > maxRiskNotes {
		return fmt.Errorf("%w: %d risk notes, want at most %d", llm.ErrOutputInvalid, len(a.RiskNotes), maxRiskNotes)
	}
	if intent.Category.NeedsRiskNotes() && len(a.RiskNotes) == 0 && anyRejected(digest) {
		return fmt.Errorf("%w: risk notes required for %s", llm.ErrOutputInvalid, intent.Category)
	}

	tokens := traceTokens(digest)
	for i, e := range a.EvidencePoints {
		if !traceable(e, tokens) {
			return fmt.Errorf("%w: evidence point %d cites no retrieved case or attribute", llm.ErrOutputInvalid, i)
		}
	}

	texts := append([]string{a.Answer}, a.EvidencePoints...)
	texts = append(texts, a.RiskNotes...)
	for _, t := range texts {
		if p, ok := predictive(t); ok {
			return fmt.Errorf("%w: predictive wording %q", llm.ErrOutputInvalid, p)
		}
	}
	return nil
}

func traceable(text string, phrases []tracePhrase) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p.cites(lower) {
			return true
		}
	}
	return false
}

func predictive(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range predictivePhrases {
		if strings.Contains(lower, p) {
			return p, true
		}
	}
	return "", false
}

func anyRejected(digest []DigestEntry) bool {
	for _, d := range digest {
		if strings.EqualFold(d.Status, types.StatusRejected) {
			return true
		}
	}
	return false
}
