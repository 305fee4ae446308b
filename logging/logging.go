// Package logging wraps a global zap logger.
package logging

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a zap field, so callers need not import zap
type Field = zap.Field

type contextKey string

const loggerKey contextKey = "logger"

var globalLogger *zap.Logger

// Init builds the global logger. level is one of debug, info, warn, error and
// format is json or console.
func Init(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build(zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}
	globalLogger = logger
	return nil
}

// Set replaces the global logger
func Set(logger *zap.Logger) {
	globalLogger = logger
}

// L returns the global logger, a no-op one if Init was never called
func L() *zap.Logger {
	if globalLogger == nil {
		return zap.NewNop()
	}
	return globalLogger
}

func Sync() {
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

// WithRequestID returns a context carrying a logger tagged with the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, loggerKey, FromContext(ctx).With(zap.String("request_id", requestID)))
}

// FromContext returns the request logger or the global one
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
			return logger
		}
	}
	return L()
}

func Debug(msg string, fields ...zap.Field) { L().Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field) { L().Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field) { L().Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { L().Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { L().Fatal(msg, fields...) }

func String(key, val string) zap.Field { return zap.String(key, val) }
func Int(key string, val int) zap.Field { return zap.Int(key, val) }
func Int64(key string, val int64) zap.Field { return zap.Int64(key, val) }
func Uint64(key string, val uint64) zap.Field { return zap.Uint64(key, val) }
func Err(err error) zap.Field { return zap.Error(err) }
func Duration(key string, d time.Duration) zap.Field { return zap.Duration(key, d) }
