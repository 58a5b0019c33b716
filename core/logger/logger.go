// Package logger provides slog constructors and attribute helpers shared
// across the service. Attribute helpers follow the empty-Attr pattern: nil
// or empty inputs produce an attribute slog silently drops, so call sites
// never need explicit nil checks.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls handler construction. Typically loaded from the
// environment by core/config.
type Config struct {
	// Level is the minimum level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" envDefault:"info"`

	// Format selects the handler: "json" for production, "text" otherwise.
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// New creates a logger writing to w according to cfg.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

// NewDefault creates a logger for main() writing to stderr.
func NewDefault(cfg Config) *slog.Logger {
	return New(os.Stderr, cfg)
}

// NewDiscard creates a logger that drops everything. Used as the default in
// components that accept an optional logger.
func NewDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
