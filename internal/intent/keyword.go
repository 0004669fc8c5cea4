package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// FallbackConfidence is the confidence reported by keyword classification.
const FallbackConfidence = 0.5

// maxFollowUpWords bounds the length of a query treated as a follow-up.
const maxFollowUpWords = 8

// categoryRules are checked in order; the first rule with a matching
// keyword decides the category.
var categoryRules = []struct {
	category types.IntentCategory
	keywords []string
}{
	{types.IntentWhyRejected, []string{"reject", "decline", "denied", "deny", "denial", "turned down"}},
	{types.IntentWhyApproved, []string{"approv", "accept", "sanction"}},
	{types.IntentSimilarCases, []string{"similar", "like this", "like mine", "comparable"}},
	{types.IntentRiskAnalysis, []string{"risk", "factor"}},
}

// followUpWords start short prompts that continue the previous topic.
var followUpWords = []string{
	"why", "how", "what about", "what", "and", "but", "so", "also",
	"tell me more", "go on", "explain", "elaborate", "same", "those", "these",
}

// toneRules are checked in order; queries matching neither are neutral.
var toneRules = []struct {
	tone     types.Tone
	keywords []string
}{
	{types.ToneAudit, []string{"audit", "compliance", "regulator"}},
	{types.ToneBusiness, []string{"portfolio", "business impact", "management", "executive", "stakeholder"}},
}

// purposeWords maps query tokens to canonical loan purposes.
var purposeWords = map[string]string{
	"home": "Home", "house": "Home", "housing": "Home", "mortgage": "Home",
	"car": "Car", "vehicle": "Car", "auto": "Car",
	"education": "Education", "student": "Education", "study": "Education",
	"business": "Business",
	"personal": "Personal",
}

var (
	numberPattern     = `(\d[\d,]*(?:\.\d+)?)\s*(k|l|lakh|lakhs|lac)?\b`
	comparatorPattern = `(above|over|greater than|more than|higher than|at least|>=|>|below|under|less than|lower than|at most|<=|<)`
	betweenPattern    = `between\s+` + numberPattern + `\s+and\s+` + numberPattern

	cibilRe        = regexp.MustCompile(`(?:cibil(?:\s+score)?|credit\s+score|score)\s+(?:of\s+|is\s+)?` + comparatorPattern + `\s*` + numberPattern)
	cibilBetweenRe = regexp.MustCompile(`(?:cibil(?:\s+score)?|credit\s+score|score)\s+` + betweenPattern)
	incomeRe       = regexp.MustCompile(`income\s+(?:of\s+|is\s+)?` + comparatorPattern + `\s*(?:rs\.?\s*|inr\s*|₹\s*)?` + numberPattern)
	incomeBetween  = regexp.MustCompile(`income\s+` + betweenPattern)
	amountRe       = regexp.MustCompile(`(?:loan\s+)?amount\s+(?:of\s+|is\s+)?` + comparatorPattern + `\s*(?:rs\.?\s*|inr\s*|₹\s*)?` + numberPattern)
	termRe         = regexp.MustCompile(`(?:term|tenure)\s+(?:of\s+|is\s+)?` + comparatorPattern + `\s*(\d+)\s*(months?|years?)`)

	// caseLabeledRe finds "loan h1" or "case id #l101"; caseIDRe finds a
	// bare id shaped like "lp001" or "ln-1001".
	caseLabeledRe = regexp.MustCompile(`\b(?:loan|case|application)\s+(?:id\s+)?#?([a-z]{1,4}-?\d+)\b`)
	caseIDRe      = regexp.MustCompile(`\b([a-z]{2,4})(-?\d{3,})\b`)
)

// currencyPrefixes look like id prefixes but mark amounts ("rs500").
var currencyPrefixes = map[string]bool{"rs": true, "inr": true}

// Keyword classifies query with deterministic keyword rules. It never
// fails: unmatched queries are general with no filters. A short follow-up
// that would be general inherits the category and, when it carries none of
// its own, the filters of the most recent user turn in conv. A follow-up
// with filters of its own still inherits the implied status.
func Keyword(query string, conv types.Conversation) types.QueryIntent {
	intent := keywordIntent(query)
	if intent.Category == types.IntentGeneral && isFollowUp(query) {
		if prev, ok := conv.Recent().LastUserTurn(); ok {
			inherited := keywordIntent(prev)
			intent.Category = inherited.Category
			if intent.Tone == types.ToneNeutral {
				intent.Tone = inherited.Tone
			}
			if intent.Filters.IsEmpty() {
				intent.Filters = inherited.Filters
			} else if intent.Filters.Status == "" {
				intent.Filters.Status = inherited.Filters.Status
			}
		}
	}
	return intent
}

func keywordIntent(query string) types.QueryIntent {
	lower := strings.ToLower(query)
	category := types.IntentGeneral
rules:
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				category = rule.category
				break rules
			}
		}
	}
	return types.QueryIntent{
		Category:   category,
		Filters:    extractFilters(lower, category),
		Tone:       keywordTone(lower),
		Confidence: FallbackConfidence,
		Method:     types.MethodFallback,
	}
}

func keywordTone(lower string) types.Tone {
	for _, rule := range toneRules {
		if containsAny(lower, rule.keywords...) {
			return rule.tone
		}
	}
	return types.ToneNeutral
}

func isFollowUp(query string) bool {
	lower := strings.ToLower(strings.TrimSpace(query))
	if n := len(strings.Fields(lower)); n == 0 || n > maxFollowUpWords {
		return false
	}
	for _, fw := range followUpWords {
		if lower == fw || strings.HasPrefix(lower, fw+" ") || strings.HasPrefix(lower, fw+"?") {
			return true
		}
	}
	return false
}

// extractFilters pulls best-effort structured constraints from a lowercased
// query. A named case carries its own status, so none is implied for it.
func extractFilters(lower string, category types.IntentCategory) types.Filters {
	var f types.Filters

	if f.CaseID = caseID(lower); f.CaseID == "" {
		switch category {
		case types.IntentWhyRejected:
			f.Status = types.StatusRejected
		case types.IntentWhyApproved:
			f.Status = types.StatusApproved
		}
	}

	for _, tok := range embed.Tokenize(lower) {
		if p, ok := purposeWords[tok]; ok {
			f.Purpose = p
			break
		}
	}

	switch {
	case containsAny(lower, "semiurban", "semi-urban", "semi urban"):
		f.PropertyArea = "Semiurban"
	case containsWord(lower, "urban"):
		f.PropertyArea = "Urban"
	case containsWord(lower, "rural"):
		f.PropertyArea = "Rural"
	}

	switch {
	case containsAny(lower, "self-employed", "self employed", "selfemployed"):
		f.EmploymentStatus = "Self-Employed"
	case containsAny(lower, "unemployed", "jobless"):
		f.EmploymentStatus = "Unemployed"
	case containsWord(lower, "salaried"):
		f.EmploymentStatus = "Salaried"
	}

	f.CIBILScore = rangeFrom(lower, cibilRe, cibilBetweenRe)
	f.ApplicantIncome = rangeFrom(lower, incomeRe, incomeBetween)
	f.LoanAmount = rangeFrom(lower, amountRe, nil)
	f.TermMonths = termRange(lower)
	return f
}

// caseID returns the uppercased id of a case named in lower, or "".
func caseID(lower string) string {
	if m := caseLabeledRe.FindStringSubmatch(lower); m != nil {
		return strings.ToUpper(m[1])
	}
	for _, m := range caseIDRe.FindAllStringSubmatch(lower, -1) {
		if !currencyPrefixes[m[1]] {
			return strings.ToUpper(m[1] + m[2])
		}
	}
	return ""
}

// rangeFrom applies a comparator pattern and an optional between pattern.
// Bounds are inclusive.
func rangeFrom(lower string, cmpRe, betweenRe *regexp.Regexp) types.Range {
	if betweenRe != nil {
		if m := betweenRe.FindStringSubmatch(lower); m != nil {
			lo, okLo := parseNumber(m[1], m[2])
			hi, okHi := parseNumber(m[3], m[4])
			if okLo && okHi {
				if lo > hi {
					lo, hi = hi, lo
				}
				return types.Range{Min: types.Bound(lo), Max: types.Bound(hi)}
			}
		}
	}
	m := cmpRe.FindStringSubmatch(lower)
	if m == nil {
		return types.Range{}
	}
	n, ok := parseNumber(m[2], m[3])
	if !ok {
		return types.Range{}
	}
	return comparatorRange(m[1], n)
}

func termRange(lower string) types.Range {
	m := termRe.FindStringSubmatch(lower)
	if m == nil {
		return types.Range{}
	}
	n, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return types.Range{}
	}
	if strings.HasPrefix(m[3], "year") {
		n *= 12
	}
	return comparatorRange(m[1], n)
}

func comparatorRange(op string, n float64) types.Range {
	switch op {
	case "above", "over", "greater than", "more than", "higher than", "at least", ">=", ">":
		return types.Range{Min: types.Bound(n)}
	default:
		return types.Range{Max: types.Bound(n)}
	}
}

// parseNumber reads "50,000", "50k", or "5 lakh" style amounts.
func parseNumber(digits, unit string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(digits, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch unit {
	case "k":
		n *= 1_000
	case "l", "lakh", "lakhs", "lac":
		n *= 100_000
	}
	return n, true
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsWord(s, word string) bool {
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && r != '-'
	}) {
		if w == word {
			return true
		}
	}
	return false
}
