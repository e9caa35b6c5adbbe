package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENVIRONMENT", "LOG_LEVEL", "REDIS_URL", "DATA_DIR", "SESSION_TTL"} {
		// Setenv registers the restore; Unsetenv leaves the key absent
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "localhost:6379", cfg.RedisURL)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("SESSION_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.Equal(t, 15*time.Minute, cfg.SessionTTL)
}

func TestLoad_InvalidTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SESSION_TTL", "-1m")
	_, err = Load()
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.input))
		})
	}
}
