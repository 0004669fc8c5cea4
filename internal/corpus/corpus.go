// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus writes loan_records databases for local development and
// tests. Production corpora come from the ingestion job; the query path
// only ever opens them read-only.
package corpus

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/arvindpandey4/loan-insight-assistant/internal/embed"
	"github.com/arvindpandey4/loan-insight-assistant/internal/index"
	"github.com/arvindpandey4/loan-insight-assistant/pkg/types"
)

//go:embed sample_loans.yaml
var sampleYAML []byte

// Sample returns the built-in development cases without vectors.
func Sample() ([]types.HistoricalRecord, error) {
	return Parse(sampleYAML)
}

// Parse decodes a YAML list of records. Missing summaries are rendered
// from the attributes.
func Parse(data []byte) ([]types.HistoricalRecord, error) {
	var records []types.HistoricalRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing records: %w", err)
	}
	for i := range records {
		if records[i].Summary == "" {
			records[i].Summary = records[i].Describe()
		}
	}
	return records, nil
}

// Embed fills each record's vector from its summary.
func Embed(ctx context.Context, emb embed.Embedder, records []types.HistoricalRecord) error {
	texts := make([]string, len(records))
	for i, r := range records {
		texts[i] = r.Summary
	}
	vecs, err := emb.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding summaries: %w", err)
	}
	for i := range records {
		records[i].Vector = vecs[i]
	}
	return nil
}

const insertRecord = `INSERT INTO loan_records (case_id, status, purpose, cibil_score,
	applicant_income, loan_amount, term_months, property_area, employment_status,
	credit_history, notes, summary, vector)
VALUES (:case_id, :status, :purpose, :cibil_score, :applicant_income, :loan_amount,
	:term_months, :property_area, :employment_status, :credit_history, :notes, :summary, :vector)`

type row struct {
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

// Write creates the database at path with the loan_records table and
// inserts records in order. An existing file is replaced.
func Write(ctx context.Context, path string, records []types.HistoricalRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, index.Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		a := r.Attributes
		if _, err := tx.NamedExecContext(ctx, insertRecord, row{
			CaseID: r.CaseID, Status: a.Status, Purpose: a.Purpose, CIBILScore: a.CIBILScore,
			ApplicantIncome: a.ApplicantIncome, LoanAmount: a.LoanAmount, TermMonths: a.TermMonths,
			PropertyArea: a.PropertyArea, EmploymentStatus: a.EmploymentStatus,
			CreditHistory: a.CreditHistory, Notes: a.Notes, Summary: r.Summary,
			Vector: index.EncodeVector(r.Vector),
		}); err != nil {
			return fmt.Errorf("inserting %s: %w", r.CaseID, err)
		}
	}
	return tx.Commit()
}

// Seed writes the sample cases, embedded with emb, to path.
func Seed(ctx context.Context, path string, emb embed.Embedder) (int, error) {
	records, err := Sample()
	if err != nil {
		return 0, err
	}
	if err := Embed(ctx, emb, records); err != nil {
		return 0, err
	}
	if err := Write(ctx, path, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
