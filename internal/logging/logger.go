package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "json" or "text"
	Output io.Writer
}

// DefaultConfig returns sensible defaults for the logger.
// Uses JSON format in Lambda environment, text format locally.
// LOG_LEVEL picks the level; DEBUG forces debug regardless.
func DefaultConfig() Config {
	level := ParseLevel(os.Getenv("LOG_LEVEL"))
	if d := os.Getenv("DEBUG"); d == "true" || d == "1" {
		level = slog.LevelDebug
	}

	format := "json"
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		format = "text"
	}

	return Config{
		Level:  level,
		Format: format,
		Output: os.Stdout,
	}
}

// New creates a configured slog.Logger.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(contextHandler{handler})
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaskUser hides the middle of a user id so logs can be correlated
// without exposing the full openid.
func MaskUser(id string) string {
	r := []rune(id)
	if len(r) <= 6 {
		return "****"
	}
	return string(r[:3]) + "****" + string(r[len(r)-3:])
}
