// Package log provides the process-wide structured logger.
//
// It wraps github.com/paularlott/logger so the rest of the code base logs
// through a single set of helpers taking a message and key/value pairs:
//
//	log.Info("Cable connected", "cable", c.Name, "group", c.Group)
package log

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/paularlott/logger"
	logslog "github.com/paularlott/logger/slog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	current logger.Logger = logslog.New(logslog.Config{
		Level:  "info",
		Format: "console",
		Writer: os.Stderr,
	})
)

// Configure replaces the global logger. Unknown levels fall back to info
// and unknown formats fall back to console.
func Configure(level, format string) {
	ConfigureWriter(level, format, os.Stderr)
}

// ConfigureWriter is Configure with an explicit destination.
func ConfigureWriter(level, format string, w io.Writer) {
	level = strings.ToLower(strings.TrimSpace(level))
	switch level {
	case "trace", "debug", "info", "warn", "error":
	default:
		level = "info"
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format != "json" {
		format = "console"
	}

	l := logslog.New(logslog.Config{
		Level:  level,
		Format: format,
		Writer: w,
	})

	mu.Lock()
	current = l
	mu.Unlock()
}

// DefaultFormat returns console when f is a terminal and json otherwise.
func DefaultFormat(f *os.File) string {
	if f != nil && term.IsTerminal(int(f.Fd())) {
		return "console"
	}
	return "json"
}

// Logger returns the current global logger.
func Logger() logger.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// With returns a child logger carrying the key/value pair.
func With(key string, value any) logger.Logger {
	return Logger().With(key, value)
}

func Trace(msg string, keysAndValues ...any) { Logger().Trace(msg, keysAndValues...) }
func Debug(msg string, keysAndValues ...any) { Logger().Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)  { Logger().Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)  { Logger().Warn(msg, keysAndValues...) }
func Error(msg string, keysAndValues ...any) { Logger().Error(msg, keysAndValues...) }
