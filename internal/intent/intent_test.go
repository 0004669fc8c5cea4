package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvindpandey4/loan-insight-assistant/internal/llm"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

func TestKeywordCategories(t *testing.T) {
	tests := []struct {
		query string
		want  types.IntentCategory
	}{
		{"Why are home loans with income 50000 rejected?", types.IntentWhyRejected},
		{"Which applications were declined last year?", types.IntentWhyRejected},
		{"Why was this loan denied?", types.IntentWhyRejected},
		{"What gets a car loan approved?", types.IntentWhyApproved},
		{"Which applicants were accepted?", types.IntentWhyApproved},
		{"Show me similar cases", types.IntentSimilarCases},
		{"Any profiles like this one?", types.IntentSimilarCases},
		{"What are the main risk drivers?", types.IntentRiskAnalysis},
		{"Which factors matter most?", types.IntentRiskAnalysis},
		{"Hello there", types.IntentGeneral},
		{"Were similar applicants rejected?", types.IntentWhyRejected},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Keyword(tt.query, nil)
			assert.Equal(t, tt.want, got.Category)
			assert.Equal(t, FallbackConfidence, got.Confidence)
			assert.Equal(t, types.MethodFallback, got.Method)
		})
	}
}

func TestKeywordFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  types.Filters
	}{
		{
			name:  "purpose and implied status",
			query: "Why are home loans with income 50000 rejected?",
			want:  types.Filters{Status: "Rejected", Purpose: "Home"},
		},
		{
			name:  "cibil lower bound",
			query: "Approved car loans with CIBIL above 700",
			want:  types.Filters{Status: "Approved", Purpose: "Car", CIBILScore: types.Range{Min: types.Bound(700)}},
		},
		{
			name:  "score upper bound and area",
			query: "rural applicants with score below 650",
			want:  types.Filters{PropertyArea: "Rural", CIBILScore: types.Range{Max: types.Bound(650)}},
		},
		{
			name:  "semiurban before urban",
			query: "education loans in semi-urban areas",
			want:  types.Filters{Purpose: "Education", PropertyArea: "Semiurban"},
		},
		{
			name:  "cibil between",
			query: "cibil score between 700 and 600 for business loans",
			want:  types.Filters{Purpose: "Business", CIBILScore: types.Range{Min: types.Bound(600), Max: types.Bound(700)}},
		},
		{
			name:  "income with units",
			query: "self-employed applicants with income over 5 lakh",
			want:  types.Filters{EmploymentStatus: "Self-Employed", ApplicantIncome: types.Range{Min: types.Bound(500000)}},
		},
		{
			name:  "amount and term in years",
			query: "loan amount under 200k with tenure over 2 years",
			want:  types.Filters{LoanAmount: types.Range{Max: types.Bound(200000)}, TermMonths: types.Range{Min: types.Bound(24)}},
		},
		{
			name:  "unemployed",
			query: "how do unemployed applicants fare",
			want:  types.Filters{EmploymentStatus: "Unemployed"},
		},
		{
			name:  "named case drops implied status",
			query: "Why was loan LP001 rejected?",
			want:  types.Filters{CaseID: "LP001"},
		},
		{
			name:  "bare hyphenated case id",
			query: "explain the approval of ln-1003 for a home purchase",
			want:  types.Filters{CaseID: "LN-1003", Purpose: "Home"},
		},
		{
			name:  "short labeled case id",
			query: "what happened to case h2",
			want:  types.Filters{CaseID: "H2"},
		},
		{
			name:  "currency is not a case id",
			query: "loans rejected with income under rs500",
			want:  types.Filters{Status: "Rejected", ApplicantIncome: types.Range{Max: types.Bound(500)}},
		},
		{
			name:  "no filters",
			query: "hello",
			want:  types.Filters{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Keyword(tt.query, nil).Filters)
		})
	}
}

func TestKeywordTone(t *testing.T) {
	tests := []struct {
		query string
		want  types.Tone
	}{
		{"Why are home loans rejected?", types.ToneNeutral},
		{"For the audit, why was loan LP001 rejected?", types.ToneAudit},
		{"Summarize rejections for compliance review", types.ToneAudit},
		{"What does this mean for our portfolio?", types.ToneBusiness},
		{"Give management a view of car loan approvals", types.ToneBusiness},
		{"Why are business loans rejected?", types.ToneNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Keyword(tt.query, nil).Tone)
		})
	}
}

func TestKeywordFollowUpInheritance(t *testing.T) {
	conv := types.Conversation{
		{Role: types.RoleUser, Text: "Why are home loans rejected?"},
		{Role: types.RoleAssistant, Text: "Most rejected home loans had low CIBIL scores."},
	}

	t.Run("short follow-up inherits category and filters", func(t *testing.T) {
		got := Keyword("Why is that?", conv)
		assert.Equal(t, types.IntentWhyRejected, got.Category)
		assert.Equal(t, types.Filters{Status: "Rejected", Purpose: "Home"}, got.Filters)
	})

	t.Run("follow-up with own filters keeps them and inherits status", func(t *testing.T) {
		got := Keyword("What about car loans?", conv)
		assert.Equal(t, types.IntentWhyRejected, got.Category)
		assert.Equal(t, types.Filters{Status: "Rejected", Purpose: "Car"}, got.Filters)
	})

	t.Run("follow-up inherits tone", func(t *testing.T) {
		audit := types.Conversation{{Role: types.RoleUser, Text: "For the audit, why are home loans rejected?"}}
		got := Keyword("Why is that?", audit)
		assert.Equal(t, types.ToneAudit, got.Tone)
	})

	t.Run("long query does not inherit", func(t *testing.T) {
		got := Keyword("what is the typical processing time for applications in this bank branch", conv)
		assert.Equal(t, types.IntentGeneral, got.Category)
	})

	t.Run("non follow-up does not inherit", func(t *testing.T) {
		got := Keyword("Hello there", conv)
		assert.Equal(t, types.IntentGeneral, got.Category)
	})

	t.Run("no user turn to inherit from", func(t *testing.T) {
		got := Keyword("Why?", types.Conversation{{Role: types.RoleAssistant, Text: "rejected"}})
		assert.Equal(t, types.IntentGeneral, got.Category)
	})

	t.Run("only the five most recent turns count", func(t *testing.T) {
		long := types.Conversation{{Role: types.RoleUser, Text: "Why are home loans rejected?"}}
		for i := 0; i < 5; i++ {
			long = append(long, types.Turn{Role: types.RoleAssistant, Text: "ok"})
		}
		got := Keyword("Why?", long)
		assert.Equal(t, types.IntentGeneral, got.Category)
	})
}

func TestClassifyModelPath(t *testing.T) {
	stub := llm.Fixed("```json\n" + `{"intent": "why_rejected", "confidence": 0.92, "filters": {"status": "rejected", "purpose": "home", "cibil_max": 650}}` + "\n```")
	c := New(stub, time.Second, nil)

	conv := types.Conversation{{Role: types.RoleUser, Text: "earlier question"}}
	got := c.Classify(context.Background(), "Why do low-score home loans fail?", conv)

	assert.Equal(t, types.QueryIntent{
		Category:   types.IntentWhyRejected,
		Filters:    types.Filters{Status: "Rejected", Purpose: "Home", CIBILScore: types.Range{Max: types.Bound(650)}},
		Tone:       types.ToneNeutral,
		Confidence: 0.92,
		Method:     types.MethodModel,
	}, got)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	prompt := calls[0].Messages[0].Content
	assert.Contains(t, prompt, "Question: Why do low-score home loans fail?")
	assert.Contains(t, prompt, "user: earlier question")
}

func TestClassifyModelToneAndCase(t *testing.T) {
	stub := llm.Fixed(`{"intent": "why_rejected", "tone": "Audit", "confidence": 0.8, "filters": {"case_id": " lp001 "}}`)
	got := New(stub, time.Second, nil).Classify(context.Background(), "For the audit, why was LP001 rejected?", nil)

	assert.Equal(t, types.MethodModel, got.Method)
	assert.Equal(t, types.ToneAudit, got.Tone)
	assert.Equal(t, types.Filters{CaseID: "LP001"}, got.Filters)
	assert.Contains(t, stub.Calls()[0].Messages[0].Content, `"tone": "neutral"`)
}

func TestClassifyFallsBack(t *testing.T) {
	query := "Why are home loans with income 50000 rejected?"
	want := Keyword(query, nil)

	tests := []struct {
		name  string
		model llm.Completer
	}{
		{name: "no model configured", model: nil},
		{name: "model unavailable", model: llm.Unavailable()},
		{name: "not json", model: llm.Fixed("I think it is about rejections.")},
		{name: "unknown category", model: llm.Fixed(`{"intent": "approve_me", "confidence": 0.9}`)},
		{name: "confidence out of range", model: llm.Fixed(`{"intent": "general", "confidence": 7}`)},
		{name: "inverted range", model: llm.Fixed(`{"intent": "general", "filters": {"cibil_min": 800, "cibil_max": 600}}`)},
		{name: "unknown tone", model: llm.Fixed(`{"intent": "general", "tone": "casual"}`)},
		{name: "bad status", model: llm.Fixed(`{"intent": "general", "filters": {"status": "pending"}}`)},
		{name: "plain error", model: &llm.Stub{Reply: func(llm.Request) (string, error) { return "", errors.New("boom") }}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.model, time.Second, nil).Classify(context.Background(), query, nil)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	blocking := llmFunc(func(ctx context.Context, _ llm.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	start := time.Now()
	got := New(blocking, 20*time.Millisecond, nil).Classify(context.Background(), "show similar cases", nil)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, types.IntentSimilarCases, got.Category)
	assert.Equal(t, types.MethodFallback, got.Method)
}

func TestModelAliases(t *testing.T) {
	got := New(llm.Fixed(`{"intent": "General_Inquiry"}`), time.Second, nil).Classify(context.Background(), "hi", nil)
	assert.Equal(t, types.IntentGeneral, got.Category)
	assert.Equal(t, types.MethodModel, got.Method)
	assert.Equal(t, defaultModelConfidence, got.Confidence)
}

func TestPromptTrimsConversation(t *testing.T) {
	stub := llm.Fixed(`{"intent":"general"}`)
	var conv types.Conversation
	for i := 0; i < 7; i++ {
		conv = append(conv, types.Turn{Role: types.RoleUser, Text: "turn-" + string(rune('a'+i))})
	}
	New(stub, time.Second, nil).Classify(context.Background(), "hi", conv)

	prompt := stub.Calls()[0].Messages[0].Content
	assert.NotContains(t, prompt, "turn-a")
	assert.NotContains(t, prompt, "turn-b")
	assert.Equal(t, 5, strings.Count(prompt, "user: turn-"))
}

type llmFunc func(ctx context.Context, req llm.Request) (string, error)

func (f llmFunc) Complete(ctx context.Context, req llm.Request) (string, error) { return f(ctx, req) }
