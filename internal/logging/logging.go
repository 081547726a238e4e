// Package logging wires up the structured logger used across the execution
// core. It mirrors the zerolog setup this codebase uses elsewhere
// (field-based call style, no fmt.Printf in hot paths) but centralizes
// initialization behind a single entry point instead of leaving every
// package to build its own logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures the global logger.
type Options struct {
	Level  string // "debug", "info", "warn", "error"
	Pretty bool   // human-readable console writer instead of JSON
	Output io.Writer
}

// Init sets zerolog's global level and writer and returns a root logger.
// Callers derive per-component loggers with log.With().Str("component", ...).
func Init(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = opts.Output
	if w == nil {
		w = os.Stderr
	}
	if opts.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}

	logger := zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	return logger
}
