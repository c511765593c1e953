// Package log provides the process-wide structured logger.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	// Verbosity is the repeat-count of the CLI's -v flag: 0 prints errors
	// only, 1 adds info/warn, 2+ adds trace-level protocol and chunk detail
	// (spec §7 "User-visible").
	Verbosity int
	Output    io.Writer // defaults to os.Stderr
}

var (
	mu          sync.RWMutex
	base        zerolog.Logger
	initialized bool
)

func levelForVerbosity(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.ErrorLevel
	case v == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.TraceLevel
	}
}

// Configure initializes the global zerolog logger. Safe to call once at
// process start; a second call replaces the global logger outright (used by
// tests).
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	level := levelForVerbosity(cfg.Verbosity)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := cfg.Output
	if writer == nil {
		writer = os.Stderr
	}

	base = zerolog.New(writer).With().Timestamp().Logger()
	initialized = true
}

func ensureInitialized() {
	mu.RLock()
	if initialized {
		mu.RUnlock()
		return
	}
	mu.RUnlock()
	Configure(Config{})
}

func logger() zerolog.Logger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Base returns the configured base logger instance by value.
func Base() zerolog.Logger {
	return logger()
}

// L provides access to the global logger as a pointer to a copy.
func L() *zerolog.Logger {
	l := logger()
	return &l
}

// WithComponent returns a child logger annotated with the given component
// name (e.g. "decoder", "cutter", "cutlist", "pipeline").
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}

// Derive attaches arbitrary fields to a child logger using the provided
// builder function.
func Derive(build func(*zerolog.Context)) zerolog.Logger {
	ctx := logger().With()
	if build != nil {
		build(&ctx)
	}
	return ctx.Logger()
}
