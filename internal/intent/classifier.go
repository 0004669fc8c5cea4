// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intent classifies a loan query into one of five categories and
// extracts advisory retrieval filters. The hosted model is tried first;
// deterministic keyword rules take over whenever it is unavailable or
// answers with unusable output, so classification never fails.
package intent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/internal/llm"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

const systemPrompt = "You classify questions about historical loan decisions. You respond with a single JSON object and nothing else."

var promptTmpl = template.Must(template.New("intent").Parse(`Classify the user's question about historical loan decisions.

Categories:
- why_rejected: why loans like the described ones were rejected
- why_approved: why loans like the described ones were approved
- similar_cases: find historical cases resembling a described profile
- risk_analysis: which factors are associated with risk or rejection
- general: anything else, including greetings and follow-ups without a clear topic

Extract filters only when the question states them. Allowed values:
status: "Approved" or "Rejected"
purpose: "Home", "Car", "Education", "Business", "Personal"
property_area: "Urban", "Semiurban", "Rural"
employment_status: "Salaried", "Self-Employed", "Unemployed"
case_id: a loan or case id named in the question, such as "LP001"; otherwise ""
Numeric bounds are inclusive; omit any bound that is not stated.

Pick a tone: "audit" when the user asks for an audit or compliance view, "business" for a portfolio or management view, otherwise "neutral".

Respond with JSON of this shape:
{"intent": "why_rejected", "tone": "neutral", "confidence": 0.9, "filters": {"case_id": "", "status": "Rejected", "purpose": "Home", "property_area": "", "employment_status": "", "cibil_min": null, "cibil_max": null, "income_min": null, "income_max": null, "amount_min": null, "amount_max": null, "term_min": null, "term_max": null}}
{{if .Conversation}}
Recent conversation (oldest first):
{{range .Conversation}}{{.Role}}: {{.Text}}
{{end}}{{end}}
Question: {{.Query}}
`))

// Classifier detects query intent.
type Classifier struct {
	model   llm.Completer
	timeout time.Duration
	logger  *zap.Logger
}

// New returns a Classifier. A nil model selects keyword rules only.
func New(model llm.Completer, timeout time.Duration, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{model: model, timeout: timeout, logger: logger}
}

// Classify returns the intent of query given the recent conversation. It
// never fails.
func (c *Classifier) Classify(ctx context.Context, query string, conv types.Conversation) types.QueryIntent {
	conv = conv.Recent()
	if c.model == nil {
		return Keyword(query, conv)
	}

	intent, err := c.classifyModel(ctx, query, conv)
	if err != nil {
		c.logger.Info("intent model path failed, using keyword rules",
			zap.Bool("invalid_output", errors.Is(err, llm.ErrOutputInvalid)), zap.Error(err))
		return Keyword(query, conv)
	}
	return intent
}

func (c *Classifier) classifyModel(ctx context.Context, query string, conv types.Conversation) (types.QueryIntent, error) {
	var buf bytes.Buffer
	if err := promptTmpl.Execute(&buf, struct {
		Query        string
		Conversation types.Conversation
	}{Query: query, Conversation: conv}); err != nil {
		return types.QueryIntent{}, fmt.Errorf("rendering prompt: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := c.model.Complete(ctx, llm.Request{
		System:    systemPrompt,
		Messages:  []llm.Message{{Role: "user", Content: buf.String()}},
		MaxTokens: 300,
	})
	if err != nil {
		if errors.Is(err, llm.ErrOutputInvalid) || errors.Is(err, llm.ErrUnavailable) {
			return types.QueryIntent{}, err
		}
		return types.QueryIntent{}, fmt.Errorf("%w: %v", llm.ErrUnavailable, err)
	}

	var resp modelResponse
	if err := llm.DecodeJSON(reply, &resp); err != nil {
		return types.QueryIntent{}, err
	}
	return resp.intent()
}

// modelResponse is the JSON the model is asked to produce.
type modelResponse struct {
	Intent     string       `json:"intent"`
	Tone       string       `json:"tone"`
	Confidence *float64     `json:"confidence"`
	Filters    modelFilters `json:"filters"`
}

type modelFilters struct {
	CaseID           string   `json:"case_id"`
	Status           string   `json:"status"`
	Purpose          string   `json:"purpose"`
	PropertyArea     string   `json:"property_area"`
	EmploymentStatus string   `json:"employment_status"`
	CIBILMin         *float64 `json:"cibil_min"`
	CIBILMax         *float64 `json:"cibil_max"`
	IncomeMin        *float64 `json:"income_min"`
	IncomeMax        *float64 `json:"income_max"`
	AmountMin        *float64 `json:"amount_min"`
	AmountMax        *float64 `json:"amount_max"`
	TermMin          *float64 `json:"term_min"`
	TermMax          *float64 `json:"term_max"`
}

// defaultModelConfidence is used when the model omits a confidence.
const defaultModelConfidence = 0.7

// categoryAliases maps labels the model sometimes uses to categories.
var categoryAliases = map[string]types.IntentCategory{
	"general_inquiry": types.IntentGeneral,
	"conversational":  types.IntentGeneral,
	"similar":         types.IntentSimilarCases,
	"risk":            types.IntentRiskAnalysis,
}

func (r modelResponse) intent() (types.QueryIntent, error) {
	label := strings.ToLower(strings.TrimSpace(r.Intent))
	category := types.IntentCategory(label)
	if alias, ok := categoryAliases[label]; ok {
		category = alias
	}
	if !category.Valid() {
		return types.QueryIntent{}, fmt.Errorf("%w: unknown intent %q", llm.ErrOutputInvalid, r.Intent)
	}

	confidence := defaultModelConfidence
	if r.Confidence != nil {
		confidence = *r.Confidence
		if confidence < 0 || confidence > 1 {
			return types.QueryIntent{}, fmt.Errorf("%w: confidence %v outside [0,1]", llm.ErrOutputInvalid, confidence)
		}
	}

	tone := types.Tone(strings.ToLower(strings.TrimSpace(r.Tone)))
	if tone == "" {
		tone = types.ToneNeutral
	}
	if !tone.Valid() {
		return types.QueryIntent{}, fmt.Errorf("%w: unknown tone %q", llm.ErrOutputInvalid, r.Tone)
	}

	f := r.Filters
	filters := types.Filters{
		CaseID:           strings.ToUpper(strings.TrimSpace(f.CaseID)),
		Status:           canonical(f.Status),
		Purpose:          canonical(f.Purpose),
		PropertyArea:     canonical(f.PropertyArea),
		EmploymentStatus: strings.TrimSpace(f.EmploymentStatus),
		CIBILScore:       types.Range{Min: f.CIBILMin, Max: f.CIBILMax},
		ApplicantIncome:  types.Range{Min: f.IncomeMin, Max: f.IncomeMax},
		LoanAmount:       types.Range{Min: f.AmountMin, Max: f.AmountMax},
		TermMonths:       types.Range{Min: f.TermMin, Max: f.TermMax},
	}
	if filters.Status != "" && filters.Status != types.StatusApproved && filters.Status != types.StatusRejected {
		return types.QueryIntent{}, fmt.Errorf("%w: unknown status %q", llm.ErrOutputInvalid, f.Status)
	}
	for name, rg := range map[string]types.Range{
		"cibil": filters.CIBILScore, "income": filters.ApplicantIncome,
		"amount": filters.LoanAmount, "term": filters.TermMonths,
	} {
		if !rg.Valid() {
			return types.QueryIntent{}, fmt.Errorf("%w: %s range %s is inverted", llm.ErrOutputInvalid, name, rg)
		}
	}

	return types.QueryIntent{
		Category:   category,
		Filters:    filters,
		Tone:       tone,
		Confidence: confidence,
		Method:     types.MethodModel,
	}, nil
}

// canonical trims s and capitalizes its first letter, lowercasing the rest.
func canonical(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
