// Package logger provides levelled logging for profrank.
// Messages go to stderr through zerolog, as console text by default or as
// JSON lines for the long-running server. The --verbose flag lowers the
// level to debug so users can follow the ingestion pipeline.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	verbose bool
	level             = zerolog.InfoLevel
	format            = "console"
	output  io.Writer = os.Stderr
	log     zerolog.Logger
)

//nolint:gochecknoinits // logging must work before Configure is called
func init() {
	rebuild()
}

// rebuild recreates the logger from current settings (mu held).
func rebuild() {
	lvl := level
	if verbose {
		lvl = zerolog.DebugLevel
	}

	w := output
	if format == "console" {
		w = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	log = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Configure sets the minimum level and the output format ("console" or "json").
// Unknown levels fall back to info.
func Configure(levelName, formatName string) {
	mu.Lock()
	defer mu.Unlock()
	level = parseLevel(levelName)
	if formatName == "json" {
		format = "json"
	} else {
		format = "console"
	}
	rebuild()
}

// parseLevel converts a level name to a zerolog level.
func parseLevel(name string) zerolog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// Reset restores the defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	verbose = false
	level = zerolog.InfoLevel
	format = "console"
	output = os.Stderr
	rebuild()
}

// current returns the active logger.
func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := log
	return &l
}

// With returns a child logger tagged with a component name, for callers
// that attach structured fields.
func With(component string) zerolog.Logger {
	return current().With().Str("component", component).Logger()
}

// Debug logs a debug message.
func Debug(format string, args ...any) {
	current().Debug().Msgf(format, args...)
}

// Section logs a pipeline stage header at debug level.
func Section(name string) {
	current().Debug().Msgf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	current().Info().Msgf(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	current().Warn().Msgf(format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	current().Error().Msgf(format, args...)
}
