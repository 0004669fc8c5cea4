// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index provides read-only nearest-neighbour search over the
// historical loan corpus. The corpus is loaded once and never mutated;
// concurrent searches need no locking.
package index

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

var (
	// ErrInvalidK is returned when k is not a positive integer.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Result is an ordered list of scored records, most similar first.
type Result []types.ScoredRecord

// CaseIDs returns the case ids in result order. It never returns nil.
func (r Result) CaseIDs() []string {
	ids := make([]string, len(r))
	for i, s := range r {
		ids[i] = s.Record.CaseID
	}
	return ids
}

// Cases returns each case id paired with its score, in result order. It
// never returns nil.
func (r Result) Cases() []types.CaseScore {
	cases := make([]types.CaseScore, len(r))
	for i, s := range r {
		cases[i] = types.CaseScore{CaseID: s.Record.CaseID, Score: s.Score}
	}
	return cases
}

// Index is an immutable, in-memory similarity index.
type Index struct {
	records []types.HistoricalRecord
	terms   []map[string]bool
	dim     int
}

// New builds an index over records. All vectors must share one dimension;
// they are normalized to unit length on load. Record order is the corpus
// order used to break score ties.
func New(records []types.HistoricalRecord) (*Index, error) {
	idx := &Index{
		records: make([]types.HistoricalRecord, len(records)),
		terms:   make([]map[string]bool, len(records)),
	}
	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r.CaseID == "" {
			return nil, fmt.Errorf("record %d: missing case id", i)
		}
		if seen[r.CaseID] {
			return nil, fmt.Errorf("record %d: duplicate case id %q", i, r.CaseID)
		}
		seen[r.CaseID] = true

		if len(r.Vector) == 0 {
			return nil, fmt.Errorf("record %s: empty vector", r.CaseID)
		}
		if i == 0 {
			idx.dim = len(r.Vector)
		} else if len(r.Vector) != idx.dim {
			return nil, fmt.Errorf("record %s: %w: got %d, want %d", r.CaseID, ErrDimensionMismatch, len(r.Vector), idx.dim)
		}

		r.Vector = embed.Normalize(slices.Clone(r.Vector))
		idx.records[i] = r
		idx.terms[i] = lexicalTerms(r)
	}
	return idx, nil
}

// Size returns the number of records.
func (x *Index) Size() int { return len(x.records) }

// Dimension returns the vector dimension, or 0 for an empty index.
func (x *Index) Dimension() int { return x.dim }

// Records returns a copy of the corpus in corpus order.
func (x *Index) Records() []types.HistoricalRecord {
	return slices.Clone(x.records)
}

// Search returns the min(k, Size) records most similar to query by cosine
// similarity. Equal scores keep corpus order.
func (x *Index) Search(query []float32, k int) (Result, error) {
	return x.SearchFiltered(query, k, types.Filters{})
}

// SearchFiltered narrows the corpus to records satisfying every filter
// predicate, then ranks within that subset. An empty subset yields an
// empty result.
func (x *Index) SearchFiltered(query []float32, k int, filters types.Filters) (Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(x.records) == 0 {
		return Result{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	q := embed.Normalize(slices.Clone(query))

	var hits Result
	for _, r := range x.records {
		if !filters.Matches(r) {
			continue
		}
		hits = append(hits, types.ScoredRecord{Record: r, Score: clamp(embed.Dot(q, r.Vector))})
	}
	return topK(hits, k), nil
}

// SearchText ranks records by the share of query terms found in each
// record's summary and attribute values. Records sharing no term are
// excluded. It serves retrieval when no query embedding is available.
func (x *Index) SearchText(query string, k int) (Result, error) {
	return x.SearchTextFiltered(query, k, types.Filters{})
}

// SearchTextFiltered is SearchText restricted to records satisfying filters.
func (x *Index) SearchTextFiltered(query string, k int, filters types.Filters) (Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	qterms := embed.UniqueTokens(query)
	if len(qterms) == 0 {
		return Result{}, nil
	}

	var hits Result
	for i, r := range x.records {
		if !filters.Matches(r) {
			continue
		}
		shared := 0
		for _, t := range qterms {
			if x.terms[i][t] {
				shared++
			}
		}
		if shared == 0 {
			continue
		}
		hits = append(hits, types.ScoredRecord{Record: r, Score: float64(shared) / float64(len(qterms))})
	}
	return topK(hits, k), nil
}

// topK stable-sorts hits by descending score and keeps the first k.
func topK(hits Result, k int) Result {
	slices.SortStableFunc(hits, func(a, b types.ScoredRecord) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	if hits == nil {
		return Result{}
	}
	return hits
}

func clamp(s float64) float64 {
	return max(-1, min(1, s))
}

// lexicalTerms collects the searchable terms of a record: its summary,
// categorical attribute values, notes, and whole-number amounts.
func lexicalTerms(r types.HistoricalRecord) map[string]bool {
	a := r.Attributes
	parts := []string{
		r.Summary, a.Status, a.Purpose, a.PropertyArea,
		a.EmploymentStatus, a.CreditHistory, a.Notes,
	}
	if a.ApplicantIncome > 0 {
		parts = append(parts, strconv.FormatFloat(a.ApplicantIncome, 'f', 0, 64))
	}
	if a.LoanAmount > 0 {
		parts = append(parts, strconv.FormatFloat(a.LoanAmount, 'f', 0, 64))
	}
	terms := make(map[string]bool)
	for _, t := range embed.Tokenize(strings.Join(parts, " ")) {
		terms[t] = true
	}
	return terms
}
