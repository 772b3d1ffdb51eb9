package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmaco-risk-server/internal/domain"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.LoggingConfig
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"json debug", domain.LoggingConfig{Level: "debug", Format: "json"}, logrus.DebugLevel, true},
		{"text warn", domain.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"}, logrus.WarnLevel, false},
		{"unknown level", domain.LoggingConfig{Level: "chatty"}, logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, closer, err := NewLogger(tt.config)
			require.NoError(t, err)
			defer closer.Close()

			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	logger, closer, err := NewLogger(domain.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.WithField("drug_name", "Warfarin").Info("Risk assessment completed")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Risk assessment completed"`)
	assert.Contains(t, string(data), `"drug_name":"Warfarin"`)
}

func TestNewLogger_BadFile(t *testing.T) {
	_, _, err := NewLogger(domain.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}
