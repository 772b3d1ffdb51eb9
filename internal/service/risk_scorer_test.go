package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmaco-risk-server/internal/domain"
)

// MockPredictor is a mock implementation of the domain.Predictor interface
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, features domain.RiskFeatures, drugName string) (*domain.Prediction, error) {
	args := m.Called(ctx, features, drugName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Prediction), args.Error(1)
}

// stalledPredictor ignores ctx and blocks until released.
type stalledPredictor struct {
	release chan struct{}
}

func (p *stalledPredictor) Predict(_ context.Context, _ domain.RiskFeatures, _ string) (*domain.Prediction, error) {
	<-p.release
	return &domain.Prediction{Success: true, RiskProbability: 0.9, Confidence: 0.9}, nil
}

type panickingPredictor struct{}

func (panickingPredictor) Predict(context.Context, domain.RiskFeatures, string) (*domain.Prediction, error) {
	panic("model exploded")
}

func warfarinVariant() *domain.VariantRecord {
	return &domain.VariantRecord{Chromosome: "1", Position: 1000, Reference: "A", Alternative: "T", Gene: "CYP2C9", Impact: "HIGH"}
}

func findEntry(hook *test.Hook, level logrus.Level) *logrus.Entry {
	for _, e := range hook.AllEntries() {
		if e.Level == level {
			return e
		}
	}
	return nil
}

func TestHeuristicScore(t *testing.T) {
	tests := []struct {
		name     string
		n, high  int
		wantScr  float64
		wantConf float64
	}{
		{"no variants", 0, 0, 0.1, 0.5},
		{"one high-risk variant", 1, 1, 0.51, 0.62},
		{"one ordinary variant", 1, 0, 0.31, 0.62},
		{"variant contribution capped", 50, 0, 0.6, 0.95},
		{"score capped at one", 10, 5, 1.0, 0.8},
		{"confidence capped", 20, 1, 0.7, 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, conf := HeuristicScore(tt.n, tt.high)
			assert.InDelta(t, tt.wantScr, score, 1e-9)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestExtractFeatures(t *testing.T) {
	variants := []*domain.VariantRecord{
		{Gene: "CYP2C9", Impact: "HIGH", ClinicalSignificance: "Pathogenic"},
		{Gene: "CYP2C9", ClinicalSignificance: "high", DrugInteractions: "Warfarin HIGH sensitivity"},
		{Gene: "VKORC1", Impact: "moderate", DrugInteractions: "warfarin dose"},
		{Impact: "LOW"},
	}

	f := ExtractFeatures(variants)

	assert.Equal(t, 4, f.VariantCount)
	assert.Equal(t, 2, f.HighRiskVariantCount)
	assert.Equal(t, 1, f.HighImpactVariantCount)
	assert.Equal(t, 1, f.PathogenicVariantCount)
	assert.Equal(t, 2, f.UniqueGeneCount)
	assert.Equal(t, 2, f.DrugInteractionCount)
	assert.Equal(t, 1, f.HighSignificanceInteractions)
	assert.InDelta(t, 0.004, f.VariantDensity, 1e-12)
	assert.InDelta(t, 0.5, f.DrugRiskRatio, 1e-12)

	wantSeed, _ := HeuristicScore(4, 2)
	assert.InDelta(t, wantSeed, f.RiskScoreSeed, 1e-12)
}

func TestExtractFeatures_Empty(t *testing.T) {
	f := ExtractFeatures(nil)
	assert.Zero(t, f.VariantCount)
	assert.Zero(t, f.DrugRiskRatio)
	assert.InDelta(t, 0.1, f.RiskScoreSeed, 1e-12)
}

func TestRiskScorer_ModelPath(t *testing.T) {
	logger, hook := test.NewNullLogger()
	predictor := new(MockPredictor)
	predictor.On("Predict", mock.Anything, mock.AnythingOfType("domain.RiskFeatures"), "Warfarin").
		Return(&domain.Prediction{Success: true, RiskLevel: domain.RiskHigh, RiskProbability: 0.82, Confidence: 0.64, ModelType: "ensemble"}, nil)

	scorer := NewRiskScorer(predictor, time.Second, logger)
	a := scorer.Score(context.Background(), []*domain.VariantRecord{warfarinVariant()}, "Warfarin")

	assert.Equal(t, domain.ScoringPathModel, a.ScoringPath)
	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.InDelta(t, 0.82, a.RiskScore, 1e-12)
	assert.InDelta(t, 0.64, a.Confidence, 1e-12)
	assert.True(t, a.IsConsistent())
	assert.Nil(t, findEntry(hook, logrus.WarnLevel))

	predictor.AssertExpectations(t)
	features := predictor.Calls[0].Arguments.Get(1).(domain.RiskFeatures)
	assert.Equal(t, 1, features.VariantCount)
	assert.Equal(t, 1, features.HighRiskVariantCount)
}

func TestRiskScorer_ModelLabelRecomputed(t *testing.T) {
	logger, hook := test.NewNullLogger()
	predictor := new(MockPredictor)
	predictor.On("Predict", mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.Prediction{Success: true, RiskLevel: domain.RiskLow, RiskProbability: 0.72, Confidence: 0.44}, nil)

	a := NewRiskScorer(predictor, time.Second, logger).
		Score(context.Background(), []*domain.VariantRecord{warfarinVariant()}, "Warfarin")

	assert.Equal(t, domain.RiskHigh, a.RiskLevel)
	assert.Equal(t, domain.ScoringPathModel, a.ScoringPath)

	entry := findEntry(hook, logrus.WarnLevel)
	require.NotNil(t, entry)
	assert.Equal(t, "LOW", entry.Data["model_level"])
	assert.Equal(t, "HIGH", entry.Data["computed_level"])
}

func TestRiskScorer_FallbackReasons(t *testing.T) {
	tests := []struct {
		name       string
		prediction *domain.Prediction
		err        error
		wantReason string
	}{
		{"transport error", nil, errors.New("connection refused"), FallbackError},
		{"unsuccessful result", &domain.Prediction{Success: false}, nil, FallbackUnsuccessful},
		{"probability out of range", &domain.Prediction{Success: true, RiskProbability: 1.5, Confidence: 0.5}, nil, FallbackMalformed},
		{"nil prediction", nil, nil, FallbackMalformed},
		{"circuit open", nil, fmt.Errorf("predict: %w", gobreaker.ErrOpenState), FallbackCircuitOpen},
		{"deadline", nil, context.DeadlineExceeded, FallbackTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := test.NewNullLogger()
			predictor := new(MockPredictor)
			predictor.On("Predict", mock.Anything, mock.Anything, mock.Anything).Return(tt.prediction, tt.err)

			a := NewRiskScorer(predictor, time.Second, logger).
				Score(context.Background(), []*domain.VariantRecord{warfarinVariant()}, "Warfarin")

			assert.Equal(t, domain.ScoringPathHeuristic, a.ScoringPath)
			assert.InDelta(t, 0.51, a.RiskScore, 1e-9)
			assert.InDelta(t, 0.62, a.Confidence, 1e-9)
			assert.Equal(t, domain.RiskModerate, a.RiskLevel)

			entry := findEntry(hook, logrus.WarnLevel)
			require.NotNil(t, entry)
			assert.Equal(t, "heuristic", entry.Data["scoring_path"])
			assert.Equal(t, tt.wantReason, entry.Data["fallback_reason"])
		})
	}
}

func TestRiskScorer_TimeoutDoesNotBlockCaller(t *testing.T) {
	logger, hook := test.NewNullLogger()
	predictor := &stalledPredictor{release: make(chan struct{})}
	t.Cleanup(func() { close(predictor.release) })

	scorer := NewRiskScorer(predictor, 20*time.Millisecond, logger)

	start := time.Now()
	a := scorer.Score(context.Background(), []*domain.VariantRecord{warfarinVariant()}, "Warfarin")
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, domain.ScoringPathHeuristic, a.ScoringPath)
	assert.InDelta(t, 0.51, a.RiskScore, 1e-9)

	entry := findEntry(hook, logrus.WarnLevel)
	require.NotNil(t, entry)
	assert.Equal(t, FallbackTimeout, entry.Data["fallback_reason"])
}

func TestRiskScorer_PredictorPanicFallsBack(t *testing.T) {
	logger, _ := test.NewNullLogger()

	a := NewRiskScorer(panickingPredictor{}, time.Second, logger).
		Score(context.Background(), []*domain.VariantRecord{warfarinVariant()}, "Warfarin")

	assert.Equal(t, domain.ScoringPathHeuristic, a.ScoringPath)
	assert.True(t, a.IsConsistent())
}

func TestRiskScorer_NoPredictor(t *testing.T) {
	logger, hook := test.NewNullLogger()

	a := NewRiskScorer(nil, 0, logger).Score(context.Background(), nil, "Warfarin")

	assert.Equal(t, domain.ScoringPathHeuristic, a.ScoringPath)
	assert.InDelta(t, 0.1, a.RiskScore, 1e-12)
	assert.InDelta(t, 0.5, a.Confidence, 1e-12)
	assert.Equal(t, domain.RiskLow, a.RiskLevel)
	assert.Zero(t, a.VariantCount)
	assert.Contains(t, a.ClinicalEvidence, "No pharmacogenomically relevant variants")
	assert.Nil(t, findEntry(hook, logrus.WarnLevel), "a disabled predictor is not a warning")
}

func TestRiskScorer_Narrative(t *testing.T) {
	variants := []*domain.VariantRecord{
		{Chromosome: "16", Position: 1, Reference: "C", Alternative: "T", Gene: "VKORC1"},
		{Chromosome: "10", Position: 2, Reference: "C", Alternative: "T", Gene: "CYP2C9", Impact: "HIGH", ClinicalSignificance: "pathogenic"},
	}

	a := NewRiskScorer(nil, 0, logrus.New()).Score(context.Background(), variants, "Warfarin")

	assert.Equal(t, []string{"CYP2C9", "VKORC1"}, a.Genes)
	assert.Contains(t, a.ClinicalEvidence, "CYP2C9, VKORC1")
	assert.Contains(t, a.ClinicalEvidence, "Warfarin")
	assert.Contains(t, a.ClinicalEvidence, "1 variant(s) are classified as pathogenic")
	assert.Contains(t, a.Recommendations, "Moderate risk")
}

type fixedNarrative struct{}

func (fixedNarrative) Render(in NarrativeInput) (string, string) {
	return "evidence:" + in.DrugName, "recs:" + in.RiskLevel.String()
}

func TestRiskScorer_CustomNarrativeRenderer(t *testing.T) {
	a := NewRiskScorer(nil, 0, logrus.New()).
		WithNarrativeRenderer(fixedNarrative{}).
		Score(context.Background(), nil, "Codeine")

	assert.Equal(t, "evidence:Codeine", a.ClinicalEvidence)
	assert.Equal(t, "recs:LOW", a.Recommendations)
}

func TestFallbackReason(t *testing.T) {
	assert.Equal(t, FallbackDisabled, FallbackReason(domain.ErrPredictorDisabled))
	assert.Equal(t, FallbackCanceled, FallbackReason(fmt.Errorf("wrapped: %w", context.Canceled)))
	assert.Equal(t, FallbackCircuitOpen, FallbackReason(gobreaker.ErrTooManyRequests))
	assert.Equal(t, FallbackError, FallbackReason(errors.New("boom")))
}
