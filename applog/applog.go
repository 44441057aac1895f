// Package applog provides general-purpose application logging.
//
// Logs are written to ~/.asksql/logs/app.log through a zap logger with a
// console encoder, so the file stays readable with `tail -f`.
// Covers: app start/stop, config loading, conversation turns, transport
// fallbacks and SQL execution.
//
// Nothing is written to stdout/stderr: the TUI owns the terminal.
package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu      sync.RWMutex
	once    sync.Once
	logger  = zap.NewNop()
	logFile *os.File
)

// Init opens the log file under dir (normally ~/.asksql/logs) and installs
// the file-backed logger. It is safe to call more than once; only the
// first call has an effect. Failures leave the no-op logger in place.
func Init(dir string) {
	once.Do(func() {
		if dir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return
			}
			dir = filepath.Join(homeDir, ".asksql", "logs")
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return
		}
		f, err := os.OpenFile(filepath.Join(dir, "app.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return
		}

		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(f), zapcore.DebugLevel)

		mu.Lock()
		logFile = f
		logger = zap.New(core)
		mu.Unlock()
	})
}

// SetLogger replaces the package logger. Tests use it to capture or
// silence output.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	mu.Unlock()
}

// L returns the structured logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Info logs a general info message.
func Info(format string, args ...interface{}) {
	L().Info(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func Warn(format string, args ...interface{}) {
	L().Warn(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	L().Error(fmt.Sprintf(format, args...))
}

// Event logs a structured event with a category.
func Event(category string, format string, args ...interface{}) {
	L().Info(fmt.Sprintf(format, args...), zap.String("category", category))
}

// Close flushes and closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	_ = logger.Sync()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}
