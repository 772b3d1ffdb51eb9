package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/pharmaco-risk-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	file   string
	config *domain.Config
}

// NewManager creates a new configuration manager that searches the default
// config paths for config.yaml.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// NewManagerFromFile creates a configuration manager reading an explicit file.
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{file: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.file != "" {
		v.SetConfigFile(m.file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/pharmaco-risk-server/")
	}

	// Set environment variable prefix and enable automatic env binding
	v.SetEnvPrefix("PHARMACO_RISK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if m.file != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_upload_bytes", 10<<20)

	// Predictor defaults
	v.SetDefault("predictor.enabled", false)
	v.SetDefault("predictor.base_url", "http://localhost:8000")
	v.SetDefault("predictor.timeout", "5s")
	v.SetDefault("predictor.model_type", "ensemble")
	v.SetDefault("predictor.rate_limit", 10)
	v.SetDefault("predictor.circuit_breaker.max_requests", 3)
	v.SetDefault("predictor.circuit_breaker.interval", "30s")
	v.SetDefault("predictor.circuit_breaker.timeout", "60s")
	v.SetDefault("predictor.circuit_breaker.min_requests", 3)
	v.SetDefault("predictor.circuit_breaker.failure_ratio", 0.6)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.memory_size", 1000)
	v.SetDefault("cache.ttl", "15m")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.max_retries", 3)

	// Storage defaults
	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.sqlite_path", "./data/assessments.db")
	v.SetDefault("storage.postgres_url", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetPredictorConfig returns predictive model configuration
func (m *Manager) GetPredictorConfig() *domain.PredictorConfig {
	return &m.config.Predictor
}

// GetCacheConfig returns prediction cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetStorageConfig returns assessment storage configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive: %d", config.Server.MaxUploadBytes)
	}

	// Validate predictor configuration
	if config.Predictor.Enabled {
		if _, err := url.ParseRequestURI(config.Predictor.BaseURL); err != nil {
			return fmt.Errorf("invalid predictor base URL %q: %w", config.Predictor.BaseURL, err)
		}
		if config.Predictor.Timeout <= 0 {
			return fmt.Errorf("predictor timeout must be positive: %s", config.Predictor.Timeout)
		}
	}
	if config.Predictor.RateLimit < 0 {
		return fmt.Errorf("invalid predictor rate limit: %d", config.Predictor.RateLimit)
	}
	if r := config.Predictor.CircuitBreaker.FailureRatio; r < 0 || r > 1 {
		return fmt.Errorf("circuit breaker failure ratio must be within [0,1]: %v", r)
	}

	// Validate cache configuration
	if config.Cache.Enabled && config.Cache.MemorySize <= 0 {
		return fmt.Errorf("cache memory size must be positive: %d", config.Cache.MemorySize)
	}

	// Validate storage configuration
	switch strings.ToLower(config.Storage.Driver) {
	case "", "none":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for the sqlite storage driver")
		}
	case "postgres":
		if config.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	for i, e := range config.Reference.GeneDrug {
		if e.Drug == "" || len(e.Genes) == 0 {
			return fmt.Errorf("reference.gene_drug[%d]: drug and genes are required", i)
		}
	}
	for i, e := range config.Reference.Substitutes {
		if e.Drug == "" || e.Alternative == "" {
			return fmt.Errorf("reference.substitutes[%d]: drug and alternative are required", i)
		}
	}

	return nil
}

// GeneDrugTable returns the built-in gene-drug table extended with any
// configured entries.
func (m *Manager) GeneDrugTable() *domain.GeneDrugTable {
	return domain.DefaultGeneDrugTable().Merge(m.config.Reference.GeneDrugMap())
}

// SubstituteTable returns the built-in substitute table extended with any
// configured entries.
func (m *Manager) SubstituteTable() *domain.SubstituteTable {
	return domain.DefaultSubstituteTable().Merge(m.config.Reference.SubstituteMap())
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
