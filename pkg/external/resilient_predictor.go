package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/pharmaco-risk-server/internal/domain"
)

// ModelBackend is the predictor wrapped by ResilientPredictor.
type ModelBackend interface {
	domain.Predictor
	domain.HealthChecker
	ModelType() string
}

// ResilientPredictor wraps the model client with a circuit breaker and a
// prediction cache. A single attempt is made per call; there are no retries.
type ResilientPredictor struct {
	backend ModelBackend
	breaker *gobreaker.CircuitBreaker
	cache   PredictionCache
	logger  *logrus.Logger
}

// NewResilientPredictor creates a resilient predictor. cache may be nil.
func NewResilientPredictor(backend ModelBackend, config domain.CircuitBreakerConfig, cache PredictionCache, logger *logrus.Logger) *ResilientPredictor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if config.MaxRequests == 0 {
		config.MaxRequests = 3
	}
	if config.Interval == 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.MinRequests == 0 {
		config.MinRequests = 3
	}
	if config.FailureRatio == 0 {
		config.FailureRatio = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "prediction-model",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= config.MinRequests && failureRatio >= config.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// A caller giving up is not a model failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &ResilientPredictor{
		backend: backend,
		breaker: breaker,
		cache:   cache,
		logger:  logger,
	}
}

// Predict implements domain.Predictor.
func (r *ResilientPredictor) Predict(ctx context.Context, features domain.RiskFeatures, drugName string) (*domain.Prediction, error) {
	key := PredictionKey(features, drugName, r.backend.ModelType())
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		p, err := r.backend.Predict(ctx, features, drugName)
		if err != nil {
			return nil, err
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("prediction model unavailable: %w", err)
		}
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	prediction := result.(*domain.Prediction)
	if r.cache != nil {
		r.cache.Set(ctx, key, prediction)
	}
	return prediction, nil
}

// Health implements domain.HealthChecker. An open breaker reports unhealthy
// without calling the backend.
func (r *ResilientPredictor) Health(ctx context.Context) error {
	if r.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("prediction model circuit open: %w", gobreaker.ErrOpenState)
	}
	return r.backend.Health(ctx)
}

// State returns the circuit breaker state.
func (r *ResilientPredictor) State() gobreaker.State {
	return r.breaker.State()
}
