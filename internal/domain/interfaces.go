package domain

import (
	"context"
)

// Predictor scores a feature set with an external predictive model.
// Implementations must honour ctx cancellation; the scorer treats any error
// as a signal to fall back to the heuristic.
type Predictor interface {
	Predict(ctx context.Context, features RiskFeatures, drugName string) (*Prediction, error)
}

// HealthChecker is implemented by collaborators that can report readiness.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetPredictorConfig() *PredictorConfig
	GetCacheConfig() *CacheConfig
	GetStorageConfig() *StorageConfig
	GetLoggingConfig() *LoggingConfig
	Reload() error
	Validate() error
	IsProduction() bool
	IsDevelopment() bool
}
