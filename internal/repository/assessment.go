// Package repository persists completed risk assessments. Storage is a
// collaborator of the assessment pipeline: nothing in the core depends on it.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmaco-risk-server/internal/domain"
)

// DefaultListLimit is used when a caller asks for a non-positive page size.
const DefaultListLimit = 50

// MaxListLimit caps a single page of results.
const MaxListLimit = 500

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

// AssessmentRecord is a stored assessment together with its alternatives.
type AssessmentRecord struct {
	ID           string                             `json:"id"`
	DrugName     string                             `json:"drug_name"`
	UploadID     string                             `json:"upload_id,omitempty"` // Identifies the submitted variant file
	Assessment   *domain.RiskAssessment             `json:"assessment"`
	Alternatives []domain.AlternativeRecommendation `json:"alternatives"`
	CreatedAt    time.Time                          `json:"created_at"`
	UpdatedAt    time.Time                          `json:"updated_at"`
}

// NewAssessmentRecord wraps an assessment for storage. The ID is assigned on Save.
func NewAssessmentRecord(assessment *domain.RiskAssessment, alternatives []domain.AlternativeRecommendation, uploadID string) *AssessmentRecord {
	rec := &AssessmentRecord{
		UploadID:     uploadID,
		Assessment:   assessment,
		Alternatives: alternatives,
	}
	if assessment != nil {
		rec.DrugName = assessment.DrugName
	}
	if rec.Alternatives == nil {
		rec.Alternatives = []domain.AlternativeRecommendation{}
	}
	return rec
}

// AssessmentStore defines the interface for assessment storage operations.
type AssessmentStore interface {
	// Save inserts a record, or replaces it when the ID already exists.
	// An empty ID is assigned a new UUID.
	Save(ctx context.Context, record *AssessmentRecord) error

	// Get returns the record with the given ID or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*AssessmentRecord, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*AssessmentRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// Delete removes a record. Deleting a missing ID returns domain.ErrNotFound.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every record to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Health verifies that the backing database is reachable.
	Health(ctx context.Context) error

	// Close closes the store and releases resources.
	Close() error
}

// AssessmentExport represents the JSON export format.
type AssessmentExport struct {
	Version     string              `json:"version"`
	ExportedAt  time.Time           `json:"exported_at"`
	Count       int                 `json:"count"`
	Assessments []*AssessmentRecord `json:"assessments"`
}

// NewStore opens the store selected by cfg.Driver. The "none" driver (or an
// empty one) returns a nil store and no error.
func NewStore(cfg domain.StorageConfig) (AssessmentStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return nil, nil
	case "sqlite":
		store, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgresStoreFromURL(cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// ClampPage normalizes pagination parameters.
func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// prepareSave assigns the ID and timestamps and encodes the JSON columns.
func prepareSave(record *AssessmentRecord, now time.Time) (assessmentJSON, alternativesJSON []byte, err error) {
	if record == nil || record.Assessment == nil {
		return nil, nil, domain.NewValidationError("assessment", "assessment is required", nil)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	} else if _, err := uuid.Parse(record.ID); err != nil {
		return nil, nil, domain.NewValidationError("id", "id must be a UUID", record.ID)
	}
	if record.DrugName == "" {
		record.DrugName = record.Assessment.DrugName
	}
	if record.Alternatives == nil {
		record.Alternatives = []domain.AlternativeRecommendation{}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	assessmentJSON, err = json.Marshal(record.Assessment)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode assessment: %w", err)
	}
	alternativesJSON, err = json.Marshal(record.Alternatives)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode alternatives: %w", err)
	}
	return assessmentJSON, alternativesJSON, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into an AssessmentRecord.
func scanRecord(s scanner) (*AssessmentRecord, error) {
	rec := &AssessmentRecord{}
	var assessmentJSON, alternativesJSON []byte

	err := s.Scan(
		&rec.ID, &rec.DrugName, &rec.UploadID,
		&assessmentJSON, &alternativesJSON,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Assessment = &domain.RiskAssessment{}
	if err := json.Unmarshal(assessmentJSON, rec.Assessment); err != nil {
		return nil, fmt.Errorf("failed to decode assessment %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal(alternativesJSON, &rec.Alternatives); err != nil {
		return nil, fmt.Errorf("failed to decode alternatives %s: %w", rec.ID, err)
	}
	if rec.Alternatives == nil {
		rec.Alternatives = []domain.AlternativeRecommendation{}
	}
	return rec, nil
}

// collect drains rows into records.
func collect(rows *sql.Rows) ([]*AssessmentRecord, error) {
	defer rows.Close()

	result := []*AssessmentRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// writeExport encodes records in the export format.
func writeExport(writer io.Writer, records []*AssessmentRecord) error {
	export := &AssessmentExport{
		Version:     "1.0",
		ExportedAt:  time.Now().UTC(),
		Count:       len(records),
		Assessments: records,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
