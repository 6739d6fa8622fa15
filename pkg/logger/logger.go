// Package logger provides opinionated logging capabilities for the stacks system.
//
// New returns a *slog.Logger so every package logs through the standard
// structured interface. Options select the handler: plain text by default,
// JSON for services, or the charmbracelet handler for human-facing CLI output.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a *slog.Logger configured by the given options. Defaults to a
// text handler at Info level writing to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	switch len(c.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = c.writers[0]
	default:
		w = io.MultiWriter(c.writers...)
	}

	var handler slog.Handler
	switch {
	case c.pretty:
		charmOpts := charmlog.Options{
			ReportTimestamp: true,
			ReportCaller:    c.source,
			Level:           charmlog.InfoLevel,
		}
		if c.level <= slog.LevelDebug {
			charmOpts.Level = charmlog.DebugLevel
		}
		handler = charmlog.NewWithOptions(w, charmOpts)
	case c.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		})
	}

	return slog.New(handler)
}

// Nop returns a logger that discards all records. Intended for tests and for
// components that treat logging as optional.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
