// Package observability constructs the service's logger and metrics.
package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds the service logger. Level accepts debug, info, warn,
// error, or none; none discards all output (the diagnostics sink stays
// wired, it is an explicit disabled level rather than a removed handler).
// Format is "json" or "text".
func NewLogger(level, format string) *slog.Logger {
	if strings.EqualFold(level, "none") {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
