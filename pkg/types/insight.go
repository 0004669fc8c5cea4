// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Source tags where an InsightResponse came from.
type Source string

const (
	SourceCurated   Source = "curated"
	SourceRetrieved Source = "retrieved"
)

// InsightResponse is the externally visible answer to a query.
type InsightResponse struct {
	Answer               string   `json:"answer" yaml:"answer"`
	EvidencePoints       []string `json:"evidence_points" yaml:"evidence_points"`
	RiskNotes            []string `json:"risk_notes" yaml:"risk_notes"`
	ComplianceDisclaimer string   `json:"compliance_disclaimer" yaml:"compliance_disclaimer"`
	Source               Source   `json:"source" yaml:"source"`

	// RetrievedCaseIDs lists the records the answer was grounded on, in
	// retrieval order. Empty for curated answers and for no-evidence answers.
	RetrievedCaseIDs []string `json:"retrieved_case_ids" yaml:"retrieved_case_ids"`

	// RetrievedCases pairs each id in RetrievedCaseIDs with its similarity
	// score.
	RetrievedCases []CaseScore `json:"retrieved_cases" yaml:"retrieved_cases"`

	// Intent is the detected intent; nil for curated answers.
	Intent *QueryIntent `json:"intent,omitempty" yaml:"intent,omitempty"`

	// Retrieved carries the scored records behind RetrievedCaseIDs for
	// in-process callers. It is not serialized.
	Retrieved []ScoredRecord `json:"-" yaml:"-"`
}

// Normalize replaces nil slices with empty ones so the serialized form
// always carries arrays.
func (r *InsightResponse) Normalize() {
	if r.EvidencePoints == nil {
		r.EvidencePoints = []string{}
	}
	if r.RiskNotes == nil {
		r.RiskNotes = []string{}
	}
	if r.RetrievedCaseIDs == nil {
		r.RetrievedCaseIDs = []string{}
	}
	if r.RetrievedCases == nil {
		r.RetrievedCases = []CaseScore{}
	}
}

// CaseScore is a retrieved case id with its similarity score.
type CaseScore struct {
	CaseID string  `json:"case_id" yaml:"case_id"`
	Score  float64 `json:"score" yaml:"score"`
}

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MaxConversationTurns is the number of most recent turns the pipeline reads.
const MaxConversationTurns = 5

// Turn is one (role, text) pair of a conversation.
type Turn struct {
	Role Role   `json:"role" yaml:"role"`
	Text string `json:"text" yaml:"text"`
}

// Conversation is caller-supplied history, oldest turn first.
type Conversation []Turn

// Recent returns at most the MaxConversationTurns most recent turns.
func (c Conversation) Recent() Conversation {
	if len(c) <= MaxConversationTurns {
		return c
	}
	return c[len(c)-MaxConversationTurns:]
}

// Validate checks that every turn has a known role.
func (c Conversation) Validate() error {
	for i, t := range c {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return fmt.Errorf("turn %d: unknown role %q", i, t.Role)
		}
	}
	return nil
}

// LastUserTurn returns the text of the most recent user turn, if any.
func (c Conversation) LastUserTurn() (string, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser && strings.TrimSpace(c[i].Text) != "" {
			return c[i].Text, true
		}
	}
	return "", false
}

// CuratedEntry is a hand-authored answer served verbatim when a query
// closely matches one of its paraphrase questions.
type CuratedEntry struct {
	ID        string   `json:"id" yaml:"id"`
	Category  string   `json:"category" yaml:"category"`
	Questions []string `json:"questions" yaml:"questions"`
	Answer    string   `json:"answer" yaml:"answer"`
}
