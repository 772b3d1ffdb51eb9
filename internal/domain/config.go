package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Predictor   PredictorConfig `mapstructure:"predictor"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	Reference   ReferenceConfig `mapstructure:"reference"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// PredictorConfig represents the external prediction model endpoint
type PredictorConfig struct {
	Enabled        bool                 `mapstructure:"enabled"`
	BaseURL        string               `mapstructure:"base_url"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	ModelType      string               `mapstructure:"model_type"` // "ensemble", "xgb"
	RateLimit      int                  `mapstructure:"rate_limit"` // requests per second
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// CircuitBreakerConfig represents circuit breaker settings for the predictor
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// CacheConfig represents prediction cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MemorySize  int           `mapstructure:"memory_size"`
	TTL         time.Duration `mapstructure:"ttl"`
	RedisURL    string        `mapstructure:"redis_url"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MaxRetries  int           `mapstructure:"max_retries"`
}

// StorageConfig represents assessment storage configuration
type StorageConfig struct {
	Driver      string `mapstructure:"driver"` // "none", "sqlite", "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // "stdout", "stderr" or a file path
}

// ReferenceConfig holds reference table entries merged over the built-in tables.
// Entries are lists rather than maps because viper lower-cases map keys and
// drug lookups are case-sensitive.
type ReferenceConfig struct {
	GeneDrug    []GeneDrugEntry   `mapstructure:"gene_drug"`
	Substitutes []SubstituteEntry `mapstructure:"substitutes"`
}

// GeneDrugEntry is one configured drug and its reference genes
type GeneDrugEntry struct {
	Drug  string   `mapstructure:"drug"`
	Genes []string `mapstructure:"genes"`
}

// SubstituteEntry is one configured drug and its substitute guidance
type SubstituteEntry struct {
	Drug        string `mapstructure:"drug"`
	Alternative string `mapstructure:"alternative"`
	Dosage      string `mapstructure:"dosage"`
	Monitoring  string `mapstructure:"monitoring"`
}

// GeneDrugMap converts the configured entries into a drug-keyed map.
func (r ReferenceConfig) GeneDrugMap() map[string][]string {
	m := make(map[string][]string, len(r.GeneDrug))
	for _, e := range r.GeneDrug {
		if e.Drug != "" {
			m[e.Drug] = e.Genes
		}
	}
	return m
}

// SubstituteMap converts the configured entries into a drug-keyed map.
func (r ReferenceConfig) SubstituteMap() map[string]SubstituteGuidance {
	m := make(map[string]SubstituteGuidance, len(r.Substitutes))
	for _, e := range r.Substitutes {
		if e.Drug != "" {
			m[e.Drug] = SubstituteGuidance{Alternative: e.Alternative, Dosage: e.Dosage, Monitoring: e.Monitoring}
		}
	}
	return m
}
