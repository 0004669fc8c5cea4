// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"net/url"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

// Schema is the table the ingestion job writes and Open reads. Vectors are
// stored as little-endian float32 blobs.
const Schema = `CREATE TABLE IF NOT EXISTS loan_records (
	case_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	purpose TEXT,
	cibil_score INTEGER,
	applicant_income REAL,
	loan_amount REAL,
	term_months INTEGER,
	property_area TEXT,
	employment_status TEXT,
	credit_history TEXT,
	notes TEXT,
	summary TEXT NOT NULL,
	vector BLOB NOT NULL
)`

const selectRecords = `SELECT case_id, status,
	COALESCE(purpose, '') AS purpose,
	COALESCE(cibil_score, 0) AS cibil_score,
	COALESCE(applicant_income, 0) AS applicant_income,
	COALESCE(loan_amount, 0) AS loan_amount,
	COALESCE(term_months, 0) AS term_months,
	COALESCE(property_area, '') AS property_area,
	COALESCE(employment_status, '') AS employment_status,
	COALESCE(credit_history, '') AS credit_history,
	COALESCE(notes, '') AS notes,
	summary, vector
FROM loan_records
ORDER BY rowid`

// recordRow is one loan_records row.
type recordRow struct {
	CaseID           string  `db:"case_id"`
	Status           string  `db:"status"`
	Purpose          string  `db:"purpose"`
	CIBILScore       int     `db:"cibil_score"`
	ApplicantIncome  float64 `db:"applicant_income"`
	LoanAmount       float64 `db:"loan_amount"`
	TermMonths       int     `db:"term_months"`
	PropertyArea     string  `db:"property_area"`
	EmploymentStatus string  `db:"employment_status"`
	CreditHistory    string  `db:"credit_history"`
	Notes            string  `db:"notes"`
	Summary          string  `db:"summary"`
	Vector           []byte  `db:"vector"`
}

func (r recordRow) record() (types.HistoricalRecord, error) {
	vec, err := DecodeVector(r.Vector)
	if err != nil {
		return types.HistoricalRecord{}, fmt.Errorf("record %s: %w", r.CaseID, err)
	}
	return types.HistoricalRecord{
		CaseID: r.CaseID,
		Attributes: types.LoanAttributes{
			Status:           r.Status,
			Purpose:          r.Purpose,
			CIBILScore:       r.CIBILScore,
			ApplicantIncome:  r.ApplicantIncome,
			LoanAmount:       r.LoanAmount,
			TermMonths:       r.TermMonths,
			PropertyArea:     r.PropertyArea,
			EmploymentStatus: r.EmploymentStatus,
			CreditHistory:    r.CreditHistory,
			Notes:            r.Notes,
		},
		Summary: r.Summary,
		Vector:  vec,
	}, nil
}

// Open loads the corpus from the SQLite database at cfg.Path in read-only
// mode. A missing file, an empty corpus, or a malformed vector is an error;
// the caller treats it as fatal.
func Open(ctx context.Context, cfg types.IndexConfig, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("opening index %s: %w", cfg.Path, err)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", readOnlyDSN(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", cfg.Path, err)
	}
	defer db.Close()

	var rows []recordRow
	if err := db.SelectContext(ctx, &rows, selectRecords); err != nil {
		return nil, fmt.Errorf("reading loan_records: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("index %s: no loan records", cfg.Path)
	}

	records := make([]types.HistoricalRecord, len(rows))
	for i, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", cfg.Path, err)
		}
		records[i] = rec
	}

	idx, err := New(records)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", cfg.Path, err)
	}
	logger.Info("similarity index loaded",
		zap.String("path", cfg.Path), zap.Int("records", idx.Size()), zap.Int("dimension", idx.Dimension()))
	return idx, nil
}

func readOnlyDSN(path string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
}

// EncodeVector serializes v as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector parses a little-endian float32 blob.
func DecodeVector(b []byte) ([]float32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		x := math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil, fmt.Errorf("vector component %d is not finite", i)
		}
		v[i] = x
	}
	return v, nil
}
