// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the loan insight pipeline:
// historical records, curated entries, query intents, conversation turns,
// insight responses, and configuration.
package types

import (
	"fmt"
	"strings"
)

// Loan statuses recorded by the ingestion job.
const (
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// LoanAttributes holds the structured fields of one historical loan case.
type LoanAttributes struct {
	// Status is the recorded outcome, "Approved" or "Rejected".
	Status string `json:"status" yaml:"status"`

	// Purpose is the loan purpose (e.g. "Home", "Car", "Education").
	Purpose string `json:"purpose" yaml:"purpose"`

	// CIBILScore is the applicant's credit bureau score at decision time.
	CIBILScore int `json:"cibil_score" yaml:"cibil_score"`

	// ApplicantIncome is the declared monthly income in INR.
	ApplicantIncome float64 `json:"applicant_income" yaml:"applicant_income"`

	// LoanAmount is the requested principal in INR.
	LoanAmount float64 `json:"loan_amount" yaml:"loan_amount"`

	// TermMonths is the requested repayment term.
	TermMonths int `json:"term_months" yaml:"term_months"`

	// PropertyArea is "Urban", "Semiurban", or "Rural".
	PropertyArea string `json:"property_area" yaml:"property_area"`

	// EmploymentStatus is e.g. "Salaried", "Self-Employed", "Unemployed".
	EmploymentStatus string `json:"employment_status" yaml:"employment_status"`

	// CreditHistory is "Good", "Poor", or empty when unknown.
	CreditHistory string `json:"credit_history" yaml:"credit_history"`

	// Notes carries the agent's free-text notes, if any.
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// IsRejected reports whether the recorded status is a rejection.
func (a LoanAttributes) IsRejected() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), StatusRejected)
}

// IsApproved reports whether the recorded status is an approval.
func (a LoanAttributes) IsApproved() bool {
	return strings.EqualFold(strings.TrimSpace(a.Status), StatusApproved)
}

// HistoricalRecord is one immutable historical loan case. Records are
// produced by the ingestion job; the pipeline only reads them.
type HistoricalRecord struct {
	// CaseID is the unique identifier of the loan case.
	CaseID string `json:"case_id" yaml:"case_id"`

	Attributes LoanAttributes `json:"attributes" yaml:"attributes"`

	// Summary is the natural-language description the vector was built from.
	Summary string `json:"summary" yaml:"summary"`

	// Vector is the unit-normalized embedding of Summary.
	Vector []float32 `json:"-" yaml:"-"`
}

// Describe renders the record as a pipe-separated text representation,
// the same shape the ingestion job embeds.
func (r HistoricalRecord) Describe() string {
	a := r.Attributes
	parts := []string{"Case " + r.CaseID}
	if a.EmploymentStatus != "" {
		parts = append(parts, "Employment: "+a.EmploymentStatus)
	}
	if a.ApplicantIncome > 0 {
		parts = append(parts, "Applicant income: INR "+FormatAmount(a.ApplicantIncome))
	}
	if a.LoanAmount > 0 {
		parts = append(parts, "Loan amount: INR "+FormatAmount(a.LoanAmount))
	}
	if a.Purpose != "" {
		parts = append(parts, "Purpose: "+a.Purpose)
	}
	if a.TermMonths > 0 {
		parts = append(parts, fmt.Sprintf("Term: %d months", a.TermMonths))
	}
	if a.CIBILScore > 0 {
		parts = append(parts, fmt.Sprintf("CIBIL score: %d", a.CIBILScore))
	}
	if a.CreditHistory != "" {
		parts = append(parts, "Credit history: "+a.CreditHistory)
	}
	if a.PropertyArea != "" {
		parts = append(parts, "Property area: "+a.PropertyArea)
	}
	if a.Status != "" {
		parts = append(parts, "Status: "+a.Status)
	}
	if a.Notes != "" {
		parts = append(parts, "Notes: "+a.Notes)
	}
	return strings.Join(parts, " | ")
}

// ScoredRecord pairs a historical record with its similarity to a query.
type ScoredRecord struct {
	Record HistoricalRecord `json:"record" yaml:"record"`
	Score  float64          `json:"score" yaml:"score"`
}

// FormatAmount renders a non-negative amount rounded to whole units with
// comma thousands separators, e.g. 250000 -> "250,000".
func FormatAmount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
