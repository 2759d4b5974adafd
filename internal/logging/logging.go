// Package logging configures the process-wide slog logger and provides the
// zerolog-backed tracer used for agent runs.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var level = new(slog.LevelVar)

// Setup installs the default slog logger writing to stderr.
// format is "json" or "text"; anything else falls back to text.
func Setup(lvl, format string) {
	setup(os.Stderr, lvl, format)
}

func setup(w io.Writer, lvl, format string) {
	SetLevel(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// SetLevel changes the level of the default logger at runtime.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(lvl string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
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
