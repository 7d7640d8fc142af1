// Package logging provides the structured leveled logger used by every
// resolver component to report registry lookups, fetch progress, and
// lock-file writes.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	testOutput   io.Writer
	testOutputMu sync.Mutex
)

// Fields is a convenience alias for a set of structured log attributes.
type Fields map[string]interface{}

var logger *slog.Logger

// SetTestOutput redirects log output to w, for capturing logs in tests.
func SetTestOutput(w io.Writer) {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = w
	logger = nil
}

// UnsetTestOutput restores the default stderr output.
func UnsetTestOutput() {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	testOutput = nil
	logger = nil
}

func getOutput() io.Writer {
	testOutputMu.Lock()
	defer testOutputMu.Unlock()
	if testOutput != nil {
		return testOutput
	}
	return os.Stderr
}

// Init configures the package logger at the given level ("debug", "info",
// "warn", "error") and format ("text" or "json").
func Init(level, format string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(getOutput(), opts)
	} else {
		handler = slog.NewTextHandler(getOutput(), opts)
	}
	logger = slog.New(handler)
}

// Logger returns the package logger, initializing it with defaults on first use.
func Logger() *slog.Logger {
	if logger == nil {
		Init("info", "text")
	}
	return logger
}

func mergeFields(fields ...Fields) []interface{} {
	attrs := make([]interface{}, 0, len(fields)*2)
	for _, f := range fields {
		for k, v := range f {
			attrs = append(attrs, k, v)
		}
	}
	return attrs
}

// Info logs an info-level message with optional structured fields.
func Info(msg string, fields ...Fields) { Logger().Info(msg, mergeFields(fields...)...) }

// Infof logs a formatted info-level message.
func Infof(format string, args ...interface{}) { Logger().Info(fmt.Sprintf(format, args...)) }

// Debug logs a debug-level message with optional structured fields.
func Debug(msg string, fields ...Fields) { Logger().Debug(msg, mergeFields(fields...)...) }

// Debugf logs a formatted debug-level message.
func Debugf(format string, args ...interface{}) { Logger().Debug(fmt.Sprintf(format, args...)) }

// Warn logs a warn-level message with optional structured fields.
func Warn(msg string, fields ...Fields) { Logger().Warn(msg, mergeFields(fields...)...) }

// Error logs an error-level message with optional structured fields.
func Error(msg string, fields ...Fields) { Logger().Error(msg, mergeFields(fields...)...) }

// Errorf logs a formatted error-level message.
func Errorf(format string, args ...interface{}) { Logger().Error(fmt.Sprintf(format, args...)) }
