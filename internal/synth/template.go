package synth

import (
	"fmt"
	"strings"

	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// Disclaimer is appended verbatim to every non-curated response.
const Disclaimer = "This explanation summarizes patterns in historical loan decisions and is provided for information only. " +
	"It is not a credit decision or risk score for any applicant, and it is not financial advice."

// InsufficientDataAnswer is the fixed answer when retrieval finds no evidence.
const InsufficientDataAnswer = "Insufficient historical data: no historical loan cases matched this question, " +
	"so no evidence-based explanation can be given. Try a broader question or fewer constraints."

// Thresholds for the recorded factors the template reports.
const (
	LowCIBILThreshold      = 650
	HighLoanToIncomeFactor = 5.0
)

// factor is a recorded attribute pattern associated with rejections.
type factor struct {
	name   string
	detect func(DigestEntry) bool
}

// factors are listed in reporting priority; ties in frequency resolve to
// the earlier factor.
var factors = []factor{
	{
		name:   fmt.Sprintf("a CIBIL score below %d", LowCIBILThreshold),
		detect: func(d DigestEntry) bool { return d.CIBILScore > 0 && d.CIBILScore < LowCIBILThreshold },
	},
	{
		name:   "poor credit history",
		detect: func(d DigestEntry) bool { return poorHistory(d.CreditHistory) },
	},
	{
		name: fmt.Sprintf("a loan amount above %gx the applicant income", HighLoanToIncomeFactor),
		detect: func(d DigestEntry) bool {
			return d.ApplicantIncome > 0 && d.LoanAmount/d.ApplicantIncome > HighLoanToIncomeFactor
		},
	},
	{
		name:   "unemployment at the time of application",
		detect: func(d DigestEntry) bool { return strings.EqualFold(strings.TrimSpace(d.EmploymentStatus), "unemployed") },
	},
}

func poorHistory(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "poor", "bad", "no", "0", "defaulted":
		return true
	}
	return false
}

// InsufficientData returns the fixed response for an empty retrieval.
func InsufficientData(intent types.QueryIntent) types.InsightResponse {
	resp := types.InsightResponse{
		Answer:               InsufficientDataAnswer,
		ComplianceDisclaimer: Disclaimer,
		Source:               types.SourceRetrieved,
		Intent:               &intent,
	}
	resp.Normalize()
	return resp
}

// Template builds a deterministic response from aggregate statistics of the
// retrieved records. It needs no model and always carries at least one
// evidence point per retrieved record in the digest.
func Template(intent types.QueryIntent, hits []types.ScoredRecord) types.InsightResponse {
	if len(hits) == 0 {
		return InsufficientData(intent)
	}
	digest := BuildDigest(hits)

	var rejected, approved []DigestEntry
	for _, d := range digest {
		switch {
		case strings.EqualFold(d.Status, types.StatusRejected):
			rejected = append(rejected, d)
		case strings.EqualFold(d.Status, types.StatusApproved):
			approved = append(approved, d)
		}
	}

	var answer strings.Builder
	fmt.Fprintf(&answer, "%d of %d similar cases were rejected", len(rejected), len(digest))
	if top, n := dominantFactor(rejected); n > 0 {
		fmt.Fprintf(&answer, "; the most common recorded factor was %s (%d of %d rejected cases).", top, n, len(rejected))
	} else if len(rejected) > 0 {
		answer.WriteString("; no single recorded factor stood out among them.")
	} else {
		answer.WriteString(".")
	}
	if avg, ok := avgCIBIL(approved); ok {
		fmt.Fprintf(&answer, " The %d approved cases had an average CIBIL score of %.0f.", len(approved), avg)
	}
	switch intent.Tone {
	case types.ToneAudit:
		fmt.Fprintf(&answer, " Cases reviewed: %s.", strings.Join(digestIDs(digest), ", "))
	case types.ToneBusiness:
		fmt.Fprintf(&answer, " Rejections made up %.0f%% of this sample.", 100*float64(len(rejected))/float64(len(digest)))
	}
	answer.WriteString(" These observations describe historical records only.")

	evidence := make([]string, len(digest))
	for i, d := range digest {
		evidence[i] = d.Bullet()
	}

	var risks []string
	if intent.Category.NeedsRiskNotes() {
		risks = riskNotes(digest, len(rejected))
	}

	resp := types.InsightResponse{
		Answer:               answer.String(),
		EvidencePoints:       evidence,
		RiskNotes:            risks,
		ComplianceDisclaimer: Disclaimer,
		Source:               types.SourceRetrieved,
		RetrievedCaseIDs:     index.Result(hits).CaseIDs(),
		RetrievedCases:       index.Result(hits).Cases(),
		Intent:               &intent,
		Retrieved:            hits,
	}
	resp.Normalize()
	return resp
}

// dominantFactor returns the factor present in the most entries and its count.
func dominantFactor(entries []DigestEntry) (string, int) {
	best, bestN := "", 0
	for _, f := range factors {
		n := 0
		for _, d := range entries {
			if f.detect(d) {
				n++
			}
		}
		if n > bestN {
			best, bestN = f.name, n
		}
	}
	return best, bestN
}

// riskNotes lists up to three detected factors with the cases showing them.
// When none is detected a single note reports the rejection share.
func riskNotes(digest []DigestEntry, rejected int) []string {
	var notes []string
	for _, f := range factors {
		var ids []string
		for _, d := range digest {
			if f.detect(d) {
				ids = append(ids, d.CaseID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		notes = append(notes, fmt.Sprintf("%s appears in %d of %d retrieved cases (%s).",
			capitalize(f.name), len(ids), len(digest), strings.Join(ids, ", ")))
		if len(notes) == maxRiskNotes {
			break
		}
	}
	if len(notes) == 0 {
		notes = append(notes, fmt.Sprintf("%d of %d retrieved cases (%s) were rejected; no single recorded risk factor stood out.",
			rejected, len(digest), strings.Join(digestIDs(digest), ", ")))
	}
	return notes
}

func avgCIBIL(entries []DigestEntry) (float64, bool) {
	sum, n := 0, 0
	for _, d := range entries {
		if d.CIBILScore > 0 {
			sum += d.CIBILScore
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

func digestIDs(digest []DigestEntry) []string {
	ids := make([]string, len(digest))
	for i, d := range digest {
		ids[i] = d.CaseID
	}
	return ids
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
