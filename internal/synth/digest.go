// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package synth

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// MaxDigest bounds the number of records described to the model.
const MaxDigest = 5

// DigestEntry is the attribute-level summary of one retrieved record.
type DigestEntry struct {
	CaseID           string
	Score            float64
	Status           string
	Purpose          string
	CIBILScore       int
	ApplicantIncome  float64
	LoanAmount       float64
	TermMonths       int
	PropertyArea     string
	EmploymentStatus string
	CreditHistory    string
	Notes            string
}

// BuildDigest summarizes the top MaxDigest hits in retrieval order.
func BuildDigest(hits []types.ScoredRecord) []DigestEntry {
	n := min(len(hits), MaxDigest)
	out := make([]DigestEntry, n)
	for i := 0; i < n; i++ {
		r := hits[i].Record
		a := r.Attributes
		out[i] = DigestEntry{
			CaseID:           r.CaseID,
			Score:            hits[i].Score,
			Status:           a.Status,
			Purpose:          a.Purpose,
			CIBILScore:       a.CIBILScore,
			ApplicantIncome:  a.ApplicantIncome,
			LoanAmount:       a.LoanAmount,
			TermMonths:       a.TermMonths,
			PropertyArea:     a.PropertyArea,
			EmploymentStatus: a.EmploymentStatus,
			CreditHistory:    a.CreditHistory,
			Notes:            a.Notes,
		}
	}
	return out
}

// Line renders the entry as one line of the model prompt.
func (d DigestEntry) Line() string {
	parts := []string{d.CaseID}
	add := func(label, v string) {
		if v != "" {
			parts = append(parts, label+" "+v)
		}
	}
	add("status", d.Status)
	add("purpose", d.Purpose)
	if d.CIBILScore > 0 {
		add("CIBIL", strconv.Itoa(d.CIBILScore))
	}
	if d.ApplicantIncome > 0 {
		add("income", types.FormatAmount(d.ApplicantIncome))
	}
	if d.LoanAmount > 0 {
		add("loan amount", types.FormatAmount(d.LoanAmount))
	}
	if d.TermMonths > 0 {
		add("term", fmt.Sprintf("%d months", d.TermMonths))
	}
	add("area", d.PropertyArea)
	add("employment", d.EmploymentStatus)
	add("credit history", d.CreditHistory)
	add("notes", d.Notes)
	return strings.Join(parts, " | ")
}

// Bullet renders the entry as a templated evidence point.
func (d DigestEntry) Bullet() string {
	var facts []string
	if d.Status != "" {
		facts = append(facts, d.Status)
	}
	if d.Purpose != "" {
		facts = append(facts, d.Purpose+" loan")
	}
	if d.CIBILScore > 0 {
		facts = append(facts, fmt.Sprintf("CIBIL %d", d.CIBILScore))
	}
	if d.ApplicantIncome > 0 {
		facts = append(facts, "income "+types.FormatAmount(d.ApplicantIncome))
	}
	if d.LoanAmount > 0 {
		facts = append(facts, "amount "+types.FormatAmount(d.LoanAmount))
	}
	if d.TermMonths > 0 {
		facts = append(facts, fmt.Sprintf("%d months", d.TermMonths))
	}
	if d.PropertyArea != "" {
		facts = append(facts, d.PropertyArea)
	}
	if d.EmploymentStatus != "" {
		facts = append(facts, d.EmploymentStatus)
	}
	if d.CreditHistory != "" {
		facts = append(facts, "credit history "+d.CreditHistory)
	}
	return d.CaseID + ": " + strings.Join(facts, ", ")
}

// tracePhrase is one digest value an evidence point may cite. The value
// must appear as a whole word; when labels are set, one of them must also
// appear in the same evidence point.
type tracePhrase struct {
	value  string
	labels []string
}

var (
	cibilLabels      = []string{"cibil", "score"}
	incomeLabels     = []string{"income", "earn", "salary"}
	amountLabels     = []string{"amount", "loan", "borrow"}
	termLabels       = []string{"month", "term"}
	areaLabels       = []string{"area", "property"}
	employmentLabels = []string{"employ", "salaried", "applicant", "borrower"}
	historyLabels    = []string{"history"}
)

// traceTokens returns the phrases that make an evidence point traceable to
// the digest. Case ids stand alone; attribute values need their label, so
// a bare status or credit-history word is not enough.
func traceTokens(digest []DigestEntry) []tracePhrase {
	seen := make(map[string]bool)
	var out []tracePhrase
	add := func(v string, labels []string) {
		v = strings.ToLower(strings.TrimSpace(v))
		key := v + "\x00" + strings.Join(labels, ",")
		if v != "" && !seen[key] {
			seen[key] = true
			out = append(out, tracePhrase{value: v, labels: labels})
		}
	}
	addAmount := func(v float64, labels []string) {
		if v > 0 {
			add(strconv.FormatFloat(v, 'f', 0, 64), labels)
			add(types.FormatAmount(v), labels)
		}
	}
	for _, d := range digest {
		add(d.CaseID, nil)
		if d.Purpose != "" {
			add(d.Purpose+" loan", nil)
		}
		add(d.PropertyArea, areaLabels)
		add(d.EmploymentStatus, employmentLabels)
		add(d.CreditHistory, historyLabels)
		if d.CIBILScore > 0 {
			add(strconv.Itoa(d.CIBILScore), cibilLabels)
		}
		addAmount(d.ApplicantIncome, incomeLabels)
		addAmount(d.LoanAmount, amountLabels)
		if d.TermMonths > 0 {
			add(strconv.Itoa(d.TermMonths), termLabels)
		}
	}
	return out
}

// cites reports whether lower, already lowercased, cites p.
func (p tracePhrase) cites(lower string) bool {
	if !containsWord(lower, p.value) {
		return false
	}
	if len(p.labels) == 0 {
		return true
	}
	for _, l := range p.labels {
		if strings.Contains(lower, l) {
			return true
		}
	}
	return false
}

// containsWord reports whether word occurs in s with no letter or digit
// touching either end. A separator between digits ("250,000") counts as
// part of the number.
func containsWord(s, word string) bool {
	for from := 0; from <= len(s)-len(word); {
		i := strings.Index(s[from:], word)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(word)
		if boundary(s, start-1, start-2) && boundary(s, end, end+1) {
			return true
		}
		from = start + 1
	}
	return false
}

// boundary reports whether s[at] ends a word. beyond is the next index
// away from the match, used to keep digit groups together.
func boundary(s string, at, beyond int) bool {
	if at < 0 || at >= len(s) {
		return true
	}
	c := s[at]
	if isWordByte(c) {
		return false
	}
	if (c == ',' || c == '.') && beyond >= 0 && beyond < len(s) && isDigit(s[beyond]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
