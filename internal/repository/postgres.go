package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/pharmaco-risk-server/internal/domain"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS assessments (
		id UUID PRIMARY KEY,
		drug_name TEXT NOT NULL,
		upload_id TEXT NOT NULL DEFAULT '',
		risk_level TEXT NOT NULL,
		risk_score DOUBLE PRECISION NOT NULL,
		scoring_path TEXT NOT NULL,
		assessment JSONB NOT NULL,
		alternatives JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_drug_name ON assessments(drug_name);
	CREATE INDEX IF NOT EXISTS idx_assessments_created_at ON assessments(created_at DESC);
`

// PostgresStore implements AssessmentStore using PostgreSQL.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore creates a new PostgreSQL assessment store on an open connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db, now: time.Now}, nil
}

// NewPostgresStoreFromURL opens a PostgreSQL store from a connection URL and
// creates the schema if it does not exist.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Migrate creates the assessments table and indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save inserts or replaces an assessment record.
func (s *PostgresStore) Save(ctx context.Context, record *AssessmentRecord) error {
	assessmentJSON, alternativesJSON, err := prepareSave(record, s.now())
	if err != nil {
		return err
	}

	query := `
		INSERT INTO assessments (
			id, drug_name, upload_id, risk_level, risk_score, scoring_path,
			assessment, alternatives, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			drug_name = EXCLUDED.drug_name,
			upload_id = EXCLUDED.upload_id,
			risk_level = EXCLUDED.risk_level,
			risk_score = EXCLUDED.risk_score,
			scoring_path = EXCLUDED.scoring_path,
			assessment = EXCLUDED.assessment,
			alternatives = EXCLUDED.alternatives,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	err = s.db.QueryRowContext(ctx, query,
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
	).Scan(&record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save assessment: %w", err)
	}
	return nil
}

// Get retrieves an assessment record by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*AssessmentRecord, error) {
	query := `
		SELECT id, drug_name, upload_id, assessment, alternatives, created_at, updated_at
		FROM assessments
		WHERE id = $1
	`

	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return rec, nil
}

// List returns assessment records with pagination, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, error) {
	query := `
		SELECT id, drug_name, upload_id, assessment, alternatives, created_at, updated_at
		FROM assessments
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return collect(rows)
}

// Count returns the total number of assessment records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count assessments: %w", err)
	}
	return count, nil
}

// Delete removes an assessment record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM assessments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete assessment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ExportJSON exports all assessment records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}
	return writeExport(writer, all)
}

// Health pings the database.
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
