// Package vfslog wraps log/slog with the two fields every log line this
// engine emits should carry: which root handle and which actor the call
// belongs to. It follows the layered slog.Handler setup
// jinterlante1206-AleutianLocal/pkg/logging builds (JSON on a file
// sink, human-readable text on stderr), scoped down to what a library
// embedded in a larger process needs: no enterprise exporter, no
// multi-destination fan-out, since nothing in this module's scope calls
// for either.
package vfslog

import (
	"io"
	"log/slog"
	"os"
)

// Config controls where and how vfslog writes.
type Config struct {
	// Writer receives log output. Defaults to os.Stderr.
	Writer io.Writer
	// JSON selects slog.NewJSONHandler over slog.NewTextHandler.
	JSON bool
	// Level is the minimum level that reaches Writer.
	Level slog.Level
}

// Logger is a *slog.Logger pinned to one root handle and one actor.
type Logger struct {
	*slog.Logger
}

// New builds a Logger for rootHandle/actor using cfg. A zero Config
// writes human-readable text to stderr at slog.LevelInfo, matching the
// teacher's CLI-friendly default.
func New(cfg Config, rootHandle, actor string) *Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	base := slog.New(handler)
	return &Logger{Logger: base.With(
		slog.String("root_handle", rootHandle),
		slog.String("actor", actor),
	)}
}

// Nop returns a Logger that discards everything, for tests and for
// callers that never configured logging.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
