package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pharmaco-risk-server/internal/domain"
)

// SQLiteStore implements AssessmentStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteStore creates a new SQLite assessment store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSQLiteSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// createSQLiteSchema creates the database tables and indexes.
func createSQLiteSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		drug_name TEXT NOT NULL,
		upload_id TEXT NOT NULL DEFAULT '',
		risk_level TEXT NOT NULL,
		risk_score REAL NOT NULL,
		scoring_path TEXT NOT NULL,
		assessment BLOB NOT NULL,
		alternatives BLOB NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_drug_name ON assessments(drug_name);
	CREATE INDEX IF NOT EXISTS idx_assessments_upload_id ON assessments(upload_id);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Save inserts or replaces an assessment record.
func (s *SQLiteStore) Save(ctx context.Context, record *AssessmentRecord) error {
	assessmentJSON, alternativesJSON, err := prepareSave(record, s.now())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO assessments (
			id, drug_name, upload_id, risk_level, risk_score, scoring_path,
			assessment, alternatives, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			drug_name = excluded.drug_name,
			upload_id = excluded.upload_id,
			risk_level = excluded.risk_level,
			risk_score = excluded.risk_score,
			scoring_path = excluded.scoring_path,
			assessment = excluded.assessment,
			alternatives = excluded.alternatives,
			updated_at = excluded.updated_at
	`,
		record.ID,
		record.DrugName,
		record.UploadID,
		record.Assessment.RiskLevel.String(),
		record.Assessment.RiskScore,
		record.Assessment.ScoringPath.String(),
		assessmentJSON,
		alternativesJSON,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment record by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*AssessmentRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, drug_name, upload_id, assessment, alternatives, created_at, updated_at
		FROM assessments
		WHERE id = ?
	`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns assessment records with pagination, newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, drug_name, upload_id, assessment, alternatives, created_at, updated_at
		FROM assessments
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return collect(rows)
}

// Count returns the total number of assessment records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// Delete removes an assessment record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all assessment records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}
	return writeExport(writer, all)
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
