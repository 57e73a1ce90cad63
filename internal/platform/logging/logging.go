// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"strings"
)

// Options selects the level and output format of the logger.
type Options struct {
	Level  string
	Format string
}

// New builds a logger writing to w. Format is "json" or "text".
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "", "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}
	return slog.New(handler), nil
}

// Init builds the logger, installs it as the slog default and redirects the
// standard log package to it.
func Init(w io.Writer, opts Options) (*slog.Logger, error) {
	logger, err := New(w, opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	log.SetFlags(0)
	return logger, nil
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}
