package external

import (
	"github.com/sirupsen/logrus"

	"github.com/pharmaco-risk-server/internal/domain"
)

// NewPredictorFromConfig builds the model client, its cache tiers and the
// circuit breaker. It returns nil when the predictor is disabled. An
// unreachable Redis degrades to the memory tier.
func NewPredictorFromConfig(predictor domain.PredictorConfig, cache domain.CacheConfig, logger *logrus.Logger) (*ResilientPredictor, *TieredCache, error) {
	if !predictor.Enabled {
		return nil, nil, nil
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var tiered *TieredCache
	if cache.Enabled {
		memory, err := NewMemoryCache(cache.MemorySize, cache.TTL)
		if err != nil {
			return nil, nil, err
		}

		var redisCache *RedisCache
		if cache.RedisURL != "" {
			redisCache, err = NewRedisCache(cache, logger)
			if err != nil {
				logger.WithError(err).Warn("Redis prediction cache unavailable, using memory cache only")
				redisCache = nil
			}
		}
		tiered = NewTieredCache(memory, redisCache)
	}

	client := NewModelClient(predictor, logger)

	var predictionCache PredictionCache
	if tiered != nil {
		predictionCache = tiered
	}

	logger.WithFields(logrus.Fields{
		"base_url":   predictor.BaseURL,
		"model_type": client.ModelType(),
		"timeout":    predictor.Timeout.String(),
		"cache":      tiered != nil,
	}).Info("Prediction model configured")

	return NewResilientPredictor(client, predictor.CircuitBreaker, predictionCache, logger), tiered, nil
}
