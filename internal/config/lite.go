// Package config provides configuration management for the assessment server.
// This file contains the lightweight configuration used by the offline CLI.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pharmaco-risk-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no config file or external services and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for data files
	SaveHistory bool   // Keep assessments in a local SQLite file

	// Predictor settings; an empty URL runs heuristic-only
	ModelURL     string
	ModelTimeout time.Duration
	ModelType    string

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".pgx-assess")

	return &LiteConfig{
		DataDir:       dataDir,
		ModelTimeout:  5 * time.Second,
		ModelType:     "ensemble",
		CacheMaxItems: 1000,
		CacheTTL:      15 * time.Minute,
		LogLevel:      "warn",
		LogFormat:     "text",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("PGX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PGX_SAVE_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SaveHistory = b
		}
	}

	// Predictor
	cfg.ModelURL = os.Getenv("PGX_MODEL_URL")
	if v := os.Getenv("PGX_MODEL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ModelTimeout = d
		}
	}
	if v := os.Getenv("PGX_MODEL_TYPE"); v != "" {
		cfg.ModelType = v
	}

	// Cache settings
	if v := os.Getenv("PGX_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("PGX_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Logging
	if v := os.Getenv("PGX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PGX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the local assessment history database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "assessments.db")
}

// PredictorConfig converts the lite settings into a predictor configuration.
func (c *LiteConfig) PredictorConfig() domain.PredictorConfig {
	return domain.PredictorConfig{
		Enabled:   c.ModelURL != "",
		BaseURL:   c.ModelURL,
		Timeout:   c.ModelTimeout,
		ModelType: c.ModelType,
	}
}

// LoggingConfig converts the lite settings into a logging configuration.
// CLI logs go to stderr so stdout stays clean for JSON output.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}
