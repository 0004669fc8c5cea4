// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// IntentCategory is the classified purpose of a user query.
type IntentCategory string

const (
	IntentWhyRejected  IntentCategory = "why_rejected"
	IntentWhyApproved  IntentCategory = "why_approved"
	IntentSimilarCases IntentCategory = "similar_cases"
	IntentRiskAnalysis IntentCategory = "risk_analysis"
	IntentGeneral      IntentCategory = "general"
)

// Valid reports whether c is one of the five known categories.
func (c IntentCategory) Valid() bool {
	switch c {
	case IntentWhyRejected, IntentWhyApproved, IntentSimilarCases, IntentRiskAnalysis, IntentGeneral:
		return true
	}
	return false
}

// NeedsRiskNotes reports whether responses for this intent carry risk notes.
func (c IntentCategory) NeedsRiskNotes() bool {
	return c == IntentWhyRejected || c == IntentRiskAnalysis
}

// Method records which path produced a stage's output.
type Method string

const (
	// MethodModel means the hosted language model produced the output.
	MethodModel Method = "model"

	// MethodFallback means the deterministic fallback produced the output.
	MethodFallback Method = "fallback"
)

// Tone is the register an explanation is written in.
type Tone string

const (
	ToneNeutral  Tone = "neutral"
	ToneAudit    Tone = "audit"
	ToneBusiness Tone = "business"
)

// Valid reports whether t is a known tone.
func (t Tone) Valid() bool {
	switch t {
	case ToneNeutral, ToneAudit, ToneBusiness:
		return true
	}
	return false
}

// OrNeutral returns t, or ToneNeutral when t is unset or unknown.
func (t Tone) OrNeutral() Tone {
	if t.Valid() {
		return t
	}
	return ToneNeutral
}

// Range is an inclusive numeric constraint. A nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Contains reports whether v satisfies both bounds.
func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Valid reports whether the bounds are ordered.
func (r Range) Valid() bool {
	return r.Min == nil || r.Max == nil || *r.Min <= *r.Max
}

func (r Range) String() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%g..%g", *r.Min, *r.Max)
	case r.Min != nil:
		return fmt.Sprintf(">=%g", *r.Min)
	case r.Max != nil:
		return fmt.Sprintf("<=%g", *r.Max)
	}
	return ""
}

// Bound returns a pointer to v, for building Ranges.
func Bound(v float64) *float64 {
	return &v
}

// Filters is the structured constraint set extracted from a query. String
// fields are equality constraints (case-insensitive); Range fields are
// inclusive numeric constraints. Zero values mean "unconstrained".
type Filters struct {
	// CaseID narrows retrieval to one named historical case.
	CaseID string `json:"case_id,omitempty" yaml:"case_id,omitempty"`

	Status           string `json:"status,omitempty" yaml:"status,omitempty"`
	Purpose          string `json:"purpose,omitempty" yaml:"purpose,omitempty"`
	PropertyArea     string `json:"property_area,omitempty" yaml:"property_area,omitempty"`
	EmploymentStatus string `json:"employment_status,omitempty" yaml:"employment_status,omitempty"`

	CIBILScore      Range `json:"cibil_score,omitempty" yaml:"cibil_score,omitempty"`
	ApplicantIncome Range `json:"applicant_income,omitempty" yaml:"applicant_income,omitempty"`
	LoanAmount      Range `json:"loan_amount,omitempty" yaml:"loan_amount,omitempty"`
	TermMonths      Range `json:"term_months,omitempty" yaml:"term_months,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f Filters) IsEmpty() bool {
	return f.CaseID == "" && f.Status == "" && f.Purpose == "" && f.PropertyArea == "" && f.EmploymentStatus == "" &&
		f.CIBILScore.IsZero() && f.ApplicantIncome.IsZero() && f.LoanAmount.IsZero() && f.TermMonths.IsZero()
}

// Matches reports whether a record satisfies every constraint.
func (f Filters) Matches(r HistoricalRecord) bool {
	a := r.Attributes
	if !equalFold(f.CaseID, r.CaseID) ||
		!equalFold(f.Status, a.Status) ||
		!equalFold(f.Purpose, a.Purpose) ||
		!equalFold(f.PropertyArea, a.PropertyArea) ||
		!equalFold(f.EmploymentStatus, a.EmploymentStatus) {
		return false
	}
	return f.CIBILScore.Contains(float64(a.CIBILScore)) &&
		f.ApplicantIncome.Contains(a.ApplicantIncome) &&
		f.LoanAmount.Contains(a.LoanAmount) &&
		f.TermMonths.Contains(float64(a.TermMonths))
}

// String renders the set constraints as "key=value" pairs for logs and prompts.
func (f Filters) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	add("case_id", f.CaseID)
	add("status", f.Status)
	add("purpose", f.Purpose)
	add("property_area", f.PropertyArea)
	add("employment_status", f.EmploymentStatus)
	add("cibil_score", f.CIBILScore.String())
	add("applicant_income", f.ApplicantIncome.String())
	add("loan_amount", f.LoanAmount.String())
	add("term_months", f.TermMonths.String())
	return strings.Join(parts, " ")
}

// equalFold treats an empty want as unconstrained.
func equalFold(want, got string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

// QueryIntent is the per-request classification of a query.
type QueryIntent struct {
	Category   IntentCategory `json:"category" yaml:"category"`
	Filters    Filters        `json:"filters" yaml:"filters"`
	Tone       Tone           `json:"tone" yaml:"tone"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Method     Method         `json:"method" yaml:"method"`
}
