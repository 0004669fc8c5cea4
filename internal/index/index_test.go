package index

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

func rec(id, status, purpose string, cibil int, vec ...float32) types.HistoricalRecord {
	return types.HistoricalRecord{
		CaseID: id,
		Attributes: types.LoanAttributes{
			Status:          status,
			Purpose:         purpose,
			CIBILScore:      cibil,
			ApplicantIncome: 50000,
			LoanAmount:      250000,
			TermMonths:      360,
			PropertyArea:    "Urban",
		},
		Summary: purpose + " loan " + status,
		Vector:  vec,
	}
}

func sampleRecords() []types.HistoricalRecord {
	return []types.HistoricalRecord{
		rec("L001", "Rejected", "Home", 610, 1, 0, 0),
		rec("L002", "Approved", "Home", 780, 0.9, 0.1, 0),
		rec("L003", "Rejected", "Car", 590, 0, 1, 0),
		rec("L004", "Approved", "Education", 720, 1, 0, 0),
		rec("L005", "Rejected", "Home", 640, 0, 0, 1),
	}
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(sampleRecords())
	require.NoError(t, err)
	return idx
}

func TestNew(t *testing.T) {
	idx := newIndex(t)
	assert.Equal(t, 5, idx.Size())
	assert.Equal(t, 3, idx.Dimension())

	for _, r := range idx.Records() {
		var sum float64
		for _, x := range r.Vector {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1, math.Sqrt(sum), 1e-6, "record %s not normalized", r.CaseID)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		records []types.HistoricalRecord
		errMsg  string
	}{
		{name: "missing id", records: []types.HistoricalRecord{rec("", "Approved", "Home", 700, 1)}, errMsg: "missing case id"},
		{name: "duplicate id", records: []types.HistoricalRecord{rec("A", "Approved", "Home", 700, 1), rec("A", "Approved", "Home", 700, 1)}, errMsg: "duplicate case id"},
		{name: "empty vector", records: []types.HistoricalRecord{rec("A", "Approved", "Home", 700)}, errMsg: "empty vector"},
		{name: "mixed dimensions", records: []types.HistoricalRecord{rec("A", "Approved", "Home", 700, 1, 0), rec("B", "Approved", "Home", 700, 1)}, errMsg: "dimension mismatch"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.records)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewDoesNotAliasInput(t *testing.T) {
	records := sampleRecords()
	records[0].Vector = []float32{3, 4, 0}
	_, err := New(records)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 0}, records[0].Vector)
}

func TestSearch(t *testing.T) {
	idx := newIndex(t)

	tests := []struct {
		name    string
		query   []float32
		k       int
		wantIDs []string
	}{
		{name: "ties keep corpus order", query: []float32{1, 0, 0}, k: 3, wantIDs: []string{"L001", "L004", "L002"}},
		{name: "k larger than corpus", query: []float32{0, 0, 1}, k: 10, wantIDs: []string{"L005", "L001", "L002", "L003", "L004"}},
		{name: "k of one", query: []float32{0, 2, 0}, k: 1, wantIDs: []string{"L003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.Search(tt.query, tt.k)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, res.CaseIDs())
			assert.Len(t, res, min(tt.k, idx.Size()))
			for i := 1; i < len(res); i++ {
				assert.GreaterOrEqual(t, res[i-1].Score, res[i].Score, "scores must not increase")
			}
			for _, r := range res {
				assert.GreaterOrEqual(t, r.Score, -1.0)
				assert.LessOrEqual(t, r.Score, 1.0)
			}
		})
	}
}

func TestSearchErrors(t *testing.T) {
	idx := newIndex(t)

	_, err := idx.Search([]float32{1, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Search([]float32{1, 0}, 3)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	empty, err := New(nil)
	require.NoError(t, err)
	res, err := empty.Search([]float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestSearchFiltered(t *testing.T) {
	idx := newIndex(t)
	query := []float32{1, 0, 0}

	tests := []struct {
		name    string
		filters types.Filters
		wantIDs []string
	}{
		{name: "status and purpose", filters: types.Filters{Status: "rejected", Purpose: " home "}, wantIDs: []string{"L001", "L005"}},
		{name: "cibil range", filters: types.Filters{CIBILScore: types.Range{Min: types.Bound(600), Max: types.Bound(720)}}, wantIDs: []string{"L001", "L004", "L005"}},
		{name: "no matching subset", filters: types.Filters{Status: "Approved", Purpose: "Business"}, wantIDs: []string{}},
		{name: "case id", filters: types.Filters{CaseID: "l003"}, wantIDs: []string{"L003"}},
		{name: "case id with other constraint", filters: types.Filters{CaseID: "L003", Status: "Approved"}, wantIDs: []string{}},
		{name: "empty filters behave like search", filters: types.Filters{}, wantIDs: []string{"L001", "L004", "L002", "L003", "L005"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := idx.SearchFiltered(query, 5, tt.filters)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, res.CaseIDs())
		})
	}
}

func TestResultCases(t *testing.T) {
	res, err := newIndex(t).Search([]float32{1, 0, 0}, 2)
	require.NoError(t, err)
	cases := res.Cases()
	require.Len(t, cases, 2)
	for i, c := range cases {
		assert.Equal(t, res[i].Record.CaseID, c.CaseID)
		assert.Equal(t, res[i].Score, c.Score)
	}
	assert.NotNil(t, Result(nil).Cases())
}

func TestSearchFilteredIsSubsetOfFullSearch(t *testing.T) {
	idx := newIndex(t)
	query := []float32{0.3, 0.5, 0.2}
	filters := types.Filters{Status: "Rejected"}

	full, err := idx.Search(query, idx.Size())
	require.NoError(t, err)
	var want []string
	for _, r := range full {
		if filters.Matches(r.Record) {
			want = append(want, r.Record.CaseID)
		}
	}

	got, err := idx.SearchFiltered(query, idx.Size(), filters)
	require.NoError(t, err)
	assert.Equal(t, want, got.CaseIDs())
}

func TestSearchText(t *testing.T) {
	idx := newIndex(t)

	res, err := idx.SearchText("Why are home loans rejected?", 5)
	require.NoError(t, err)
	// L001 and L005 share home, loan and rejected; L002 and L003 share two terms.
	assert.Equal(t, []string{"L001", "L005", "L002", "L003", "L004"}, res.CaseIDs())
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)

	res, err = idx.SearchTextFiltered("home loans", 5, types.Filters{Status: "Approved"})
	require.NoError(t, err)
	assert.Equal(t, []string{"L002", "L004"}, res.CaseIDs())

	res, err = idx.SearchText("zebra crossing", 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, err = idx.SearchText("what is the", 5)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = idx.SearchText("home", 0)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestStats(t *testing.T) {
	s := newIndex(t).Stats()
	assert.Equal(t, 5, s.Records)
	assert.Equal(t, 3, s.Dimension)
	assert.Equal(t, map[string]int{"Rejected": 3, "Approved": 2}, s.StatusCounts)
	assert.Equal(t, map[string]int{"Home": 3, "Car": 1, "Education": 1}, s.PurposeCounts)
	assert.Equal(t, map[string]int{"Home": 2, "Car": 1}, s.RejectionsByPurpose)
	assert.InDelta(t, (610+590+640)/3.0, s.AvgCIBILByStatus["Rejected"], 1e-9)
	assert.InDelta(t, 750.0, s.AvgCIBILByStatus["Approved"], 1e-9)
}

func TestConcurrentSearch(t *testing.T) {
	idx := newIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100 && ctx.Err() == nil; j++ {
				res, err := idx.Search([]float32{1, 0, 0}, 2)
				if err != nil || len(res) != 2 {
					cancel()
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.NoError(t, ctx.Err(), "concurrent searches disagreed")
}
