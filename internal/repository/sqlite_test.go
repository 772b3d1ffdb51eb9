package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaco-risk-server/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
	assert.Equal(t, dbPath, store.Path())
	assert.NoError(t, store.Health(context.Background()))
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStore("")
	assert.Error(t, err)
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	rec := NewAssessmentRecord(sampleAssessment("Warfarin", 0.51), sampleAlternatives(), "upload-7")
	require.NoError(t, store.Save(ctx, rec))

	_, err := uuid.Parse(rec.ID)
	require.NoError(t, err, "ID should be a UUID")
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, "Warfarin", got.DrugName)
	assert.Equal(t, "upload-7", got.UploadID)
	assert.Equal(t, domain.RiskModerate, got.Assessment.RiskLevel)
	assert.InDelta(t, 0.51, got.Assessment.RiskScore, 1e-12)
	assert.Equal(t, []string{"CYP2C9", "VKORC1"}, got.Assessment.Genes)
	require.Len(t, got.Alternatives, 1)
	assert.Equal(t, "Apixaban", got.Alternatives[0].AlternativeDrug)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLiteStore_GetNotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSQLiteStore_SaveReplacesExisting(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	rec := NewAssessmentRecord(sampleAssessment("Warfarin", 0.51), nil, "")
	require.NoError(t, store.Save(ctx, rec))
	created := rec.CreatedAt

	rec.Assessment = sampleAssessment("Warfarin", 0.82)
	require.NoError(t, store.Save(ctx, rec))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskHigh, got.Assessment.RiskLevel)
	assert.Empty(t, got.Alternatives)
	assert.WithinDuration(t, created, got.CreatedAt, time.Second)
}

func TestSQLiteStore_ListNewestFirst(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	drugs := []string{"Warfarin", "Clopidogrel", "Codeine"}
	for i, drug := range drugs {
		rec := NewAssessmentRecord(sampleAssessment(drug, 0.3), nil, "")
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.Save(ctx, rec))
	}

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Codeine", all[0].DrugName)
	assert.Equal(t, "Clopidogrel", all[1].DrugName)
	assert.Equal(t, "Warfarin", all[2].DrugName)

	page, err := store.List(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Clopidogrel", page[0].DrugName)

	empty, err := store.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	rec := NewAssessmentRecord(sampleAssessment("Codeine", 0.2), nil, "")
	require.NoError(t, store.Save(ctx, rec))

	require.NoError(t, store.Delete(ctx, rec.ID))
	_, err := store.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, rec.ID), domain.ErrNotFound)
}

func TestSQLiteStore_ExportJSON(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, drug := range []string{"Warfarin", "Simvastatin"} {
		require.NoError(t, store.Save(ctx, NewAssessmentRecord(sampleAssessment(drug, 0.45), sampleAlternatives(), "")))
	}

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(ctx, &buf))

	var export AssessmentExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 2, export.Count)
	assert.Len(t, export.Assessments, 2)
}

func TestSQLiteStore_SaveRejectsInvalidRecord(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	var verr *domain.ValidationError
	assert.ErrorAs(t, store.Save(ctx, &AssessmentRecord{DrugName: "Warfarin"}), &verr)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
