package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string        `env:"PORT" envDefault:"8080"`
	Environment string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string        `env:"LOG_LEVEL" envDefault:"info"`
	RedisURL    string        `env:"REDIS_URL" envDefault:"localhost:6379"`
	DataDir     string        `env:"DATA_DIR" envDefault:"./data"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	LogLevel slog.Level `env:"-"`
}

// Load reads an optional .env file, then the process environment.
// Variables already set in the environment win over .env values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.SessionTTL)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
