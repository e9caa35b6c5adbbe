package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/jwebster45206/macro-engine/internal/config"
)

// Service is attached to every record
const Service = "macro-engine"

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	return setup(cfg, os.Stdout)
}

func setup(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.LogLevel,
		AddSource: cfg.LogLevel <= slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With(
		"service", Service,
		"env", cfg.Environment,
	)
	slog.SetDefault(logger)

	return logger
}

// NewConsole returns a text logger for the interactive console. It does not
// replace the default logger, so the TUI owns stdout.
func NewConsole(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("service", Service)
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithSession adds the character session ID to logger context
func WithSession(logger *slog.Logger, sessionID uuid.UUID) *slog.Logger {
	return logger.With("session_id", sessionID.String())
}

// WithMacro tags records with the macro being run and the action profile it
// was validated under. source is "inline", "turn", "round", "ability:<id>"
// or "macro:<id>".
func WithMacro(logger *slog.Logger, source, profile string) *slog.Logger {
	return logger.With(slog.Group("macro",
		"source", source,
		"profile", profile,
	))
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	if err == nil {
		return logger
	}
	return logger.With("error", err.Error())
}
