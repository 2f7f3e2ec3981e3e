package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// Init initializes the default logger with a JSON handler writing to
// os.Stdout. The level is read from LOG_LEVEL (debug/info/warn/error,
// default info) since a worker pool's own config is not yet loaded at
// the point main.go calls this. Safe to call more than once; only the
// first call takes effect.
func Init() {
	once.Do(func() {
		defaultLogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: levelFromEnv(),
		}))
		slog.SetDefault(defaultLogger)
		defaultLogger.Info("logger initialized", "level", levelFromEnv().String())
	})
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the initialized default logger, initializing it first if
// necessary.
func Get() *slog.Logger {
	Init()
	return defaultLogger
}

// Stage returns a logger bound with the stage/worker attrs every worker
// pool goroutine and dispatcher sweep carries on each log line, so
// callers stop re-threading "stage"/"worker" through every call site.
func Stage(stage, workerID string) *slog.Logger {
	l := Get().With("stage", stage)
	if workerID != "" {
		l = l.With("worker_id", workerID)
	}
	return l
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	Get().Info(msg, args...)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	Get().Warn(msg, args...)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Get().Error(msg, args...)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	Get().Debug(msg, args...)
}
