package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmaco-risk-server/internal/domain"
	"github.com/pharmaco-risk-server/internal/metrics"
)

// DefaultPredictorTimeout bounds a single model call when none is configured.
const DefaultPredictorTimeout = 5 * time.Second

// Fallback reasons reported in logs and the risk_model_fallbacks_total metric.
const (
	FallbackDisabled     = "disabled"
	FallbackTimeout      = "timeout"
	FallbackCanceled     = "canceled"
	FallbackCircuitOpen  = "circuit_open"
	FallbackUnsuccessful = "unsuccessful"
	FallbackMalformed    = "malformed"
	FallbackError        = "error"
)

// RiskScorer turns a relevant variant set into a RiskAssessment. It asks the
// predictor first and falls back to the heuristic on any failure, so Score
// never fails.
type RiskScorer struct {
	predictor domain.Predictor
	timeout   time.Duration
	narrator  NarrativeRenderer
	logger    *logrus.Logger
	now       func() time.Time
}

// NewRiskScorer creates a scorer. A nil predictor disables the model path.
func NewRiskScorer(predictor domain.Predictor, timeout time.Duration, logger *logrus.Logger) *RiskScorer {
	if timeout <= 0 {
		timeout = DefaultPredictorTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RiskScorer{
		predictor: predictor,
		timeout:   timeout,
		narrator:  TemplateNarrative{},
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNarrativeRenderer replaces the text renderer.
func (s *RiskScorer) WithNarrativeRenderer(r NarrativeRenderer) *RiskScorer {
	if r != nil {
		s.narrator = r
	}
	return s
}

// Score assesses the relevant variants for drugName. The returned assessment
// always has a level consistent with its score.
func (s *RiskScorer) Score(ctx context.Context, variants []*domain.VariantRecord, drugName string) *domain.RiskAssessment {
	features := ExtractFeatures(variants)
	score, confidence := HeuristicScore(features.VariantCount, features.HighRiskVariantCount)
	path := domain.ScoringPathHeuristic

	prediction, err := s.predict(ctx, features, drugName)
	if err == nil {
		score = prediction.RiskProbability
		confidence = prediction.Confidence
		path = domain.ScoringPathModel
	} else {
		reason := FallbackReason(err)
		metrics.ModelFallbacksTotal.WithLabelValues(reason).Inc()
		entry := s.logger.WithFields(logrus.Fields{
			"drug_name":       drugName,
			"scoring_path":    "heuristic",
			"fallback_reason": reason,
			"variant_count":   features.VariantCount,
		})
		if reason == FallbackDisabled {
			entry.Debug("Predictor disabled, using heuristic score")
		} else {
			entry.WithError(err).Warn("Predictive model unavailable, using heuristic score")
		}
	}

	level := domain.RiskLevelFromScore(score)
	if path == domain.ScoringPathModel && prediction.RiskLevel != "" && prediction.RiskLevel != level {
		s.logger.WithFields(logrus.Fields{
			"drug_name":      drugName,
			"model_level":    prediction.RiskLevel.String(),
			"computed_level": level.String(),
			"probability":    score,
		}).Warn("Model risk label disagrees with score thresholds, using computed level")
	}

	genes := sortedGenes(variants)
	evidence, recommendations := s.narrator.Render(NarrativeInput{
		DrugName:        drugName,
		RiskLevel:       level,
		Genes:           genes,
		VariantCount:    features.VariantCount,
		HighRiskCount:   features.HighRiskVariantCount,
		PathogenicCount: features.PathogenicVariantCount,
	})

	assessment := &domain.RiskAssessment{
		DrugName:               drugName,
		RiskLevel:              level,
		RiskScore:              score,
		Confidence:             confidence,
		VariantCount:           features.VariantCount,
		HighRiskVariantCount:   features.HighRiskVariantCount,
		PathogenicVariantCount: features.PathogenicVariantCount,
		Genes:                  genes,
		ClinicalEvidence:       evidence,
		Recommendations:        recommendations,
		ScoringPath:            path,
		AssessedAt:             s.now(),
	}

	metrics.AssessmentsTotal.WithLabelValues(path.String(), level.String()).Inc()
	s.logger.WithFields(logrus.Fields(assessment.LogFields())).Debug("Risk assessment scored")

	return assessment
}

type predictResult struct {
	prediction *domain.Prediction
	err        error
}

// predict makes one bounded model call. The call runs in its own goroutine so
// a predictor that ignores ctx cannot hold the caller past the timeout; its
// late result is dropped into the buffered channel and discarded.
func (s *RiskScorer) predict(ctx context.Context, features domain.RiskFeatures, drugName string) (*domain.Prediction, error) {
	if s.predictor == nil {
		return nil, domain.ErrPredictorDisabled
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	defer func() { metrics.ModelCallDuration.Observe(time.Since(start).Seconds()) }()

	done := make(chan predictResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- predictResult{err: fmt.Errorf("predictor panic: %v", r)}
			}
		}()
		p, err := s.predictor.Predict(callCtx, features, drugName)
		done <- predictResult{prediction: p, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if err := r.prediction.Validate(); err != nil {
			return nil, err
		}
		return r.prediction, nil
	case <-callCtx.Done():
		return nil, fmt.Errorf("waiting for prediction: %w", callCtx.Err())
	}
}

// FallbackReason classifies a model-path error into a bounded label set.
func FallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPredictorDisabled):
		return FallbackDisabled
	case errors.Is(err, context.DeadlineExceeded):
		return FallbackTimeout
	case errors.Is(err, context.Canceled):
		return FallbackCanceled
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return FallbackCircuitOpen
	case errors.Is(err, domain.ErrPredictionUnsuccessful):
		return FallbackUnsuccessful
	case errors.Is(err, domain.ErrMalformedPrediction):
		return FallbackMalformed
	default:
		return FallbackError
	}
}
