package app

import (
	"io"
	"log/slog"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates a structured logger. format "pretty" selects the
// colourised console handler; anything else writes JSON.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: true,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "pretty", "text":
		h = newPrettyHandler(w, opts, true)
	case "plain":
		h = newPrettyHandler(w, opts, false)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	log := slog.New(h)
	slog.SetDefault(log)
	return log
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
