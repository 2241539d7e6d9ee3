// Package logging provides a thin slog wrapper for the passkey server
package logging

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
)

// Logger wraps slog with level helpers used throughout the server.
type Logger struct {
	logger *slog.Logger
	debug  bool
}

// NewLogger creates a logger writing text records to stderr.
func NewLogger(debug bool) *Logger {
	return NewLoggerWithWriter(os.Stderr, debug)
}

// NewLoggerWithWriter creates a logger writing to w. Tests use this to
// capture output.
func NewLoggerWithWriter(w io.Writer, debug bool) *Logger {
	level := "info"
	if debug {
		level = "debug"
	}
	return NewLoggerWithOptions(w, level, "text")
}

// NewLoggerWithOptions creates a logger with an explicit level
// (debug, info, warn, error) and format (json or text). Unknown values
// fall back to info and text.
func NewLoggerWithOptions(w io.Writer, level, format string) *Logger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: slogLevel}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		logger: slog.New(handler),
		debug:  level == "debug",
	}
}

// Slog returns the underlying slog logger for components that take one.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

// With returns a logger with the given attributes attached to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		logger: l.logger.With(args...),
		debug:  l.debug,
	}
}

// Info logs an informational message
func (l *Logger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...any) {
	if l.debug {
		l.logger.Debug(msg, args...)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...any) {
	if l.debug {
		l.logger.Debug(fmt.Sprintf(format, args...))
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

// FatalError logs a fatal error and exits
func (l *Logger) FatalError(err error) {
	log.Fatal(err)
}

// MaybeError logs an error if it's not nil
func (l *Logger) MaybeError(err error) {
	if err != nil {
		l.logger.Error(err.Error())
	}
}

// DefaultLogger returns a default logger instance with debug=false
func DefaultLogger() *Logger {
	return NewLogger(false)
}
