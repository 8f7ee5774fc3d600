// Package primal provides the shared structured-logging wrapper used by
// the sieve, batch, and seqfile packages. It carries no state of its
// own beyond a slog.Logger and a handful of domain-specific field
// builders and operation helpers.
package primal

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with field builders and operation helpers
// specific to sieving and sequence-file maintenance.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps an existing slog.Handler. A nil handler falls back to
// a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger returns a Logger writing JSON to stderr at level.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger returns a Logger writing human-readable text to stderr
// at level.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards everything written to it.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// Default returns the package-level default logger (slog.Default()).
func Default() *Logger {
	return &Logger{Logger: slog.Default()}
}

// WithWindow tags the logger with a batch window number.
func (l *Logger) WithWindow(n int) *Logger {
	return &Logger{Logger: l.Logger.With("window", n)}
}

// WithPath tags the logger with a sequence file path.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{Logger: l.Logger.With("path", path)}
}

// LogSieveProgress logs a sieve run emitting its n-th prime so far.
func (l *Logger) LogSieveProgress(count uint64, lastPrime uint64) {
	l.Debug("sieve progress", "count", count, "lastPrime", lastPrime)
}

// LogWindowComplete logs a batch window finishing.
func (l *Logger) LogWindowComplete(window int, from, to, lastPrime uint64) {
	l.Info("window complete", "window", window, "from", from, "to", to, "lastPrime", lastPrime)
}

// LogRepairScan logs a repair pass's recovered statistics.
func (l *Logger) LogRepairScan(path string, count uint64, maxOffset uint32) {
	l.Info("repair scan complete", "path", path, "count", count, "maxOffset", maxOffset)
}

// LogArchiveOutcome logs the result of an archive upload or download.
func (l *Logger) LogArchiveOutcome(name string, bytes int64, err error) {
	if err != nil {
		l.Error("archive operation failed", "name", name, "bytes", bytes, "error", err)
		return
	}
	l.Info("archive operation complete", "name", name, "bytes", bytes)
}
