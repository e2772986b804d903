package logger

import (
	"context"
	"log/slog"
)

// loggerContextKey is an unexported type for context keys to avoid collisions.
type loggerContextKey struct{}

// WithLogger returns a new context carrying the given logger. Store code and
// background workers retrieve it with FromContext so log lines keep their
// request- or task-scoped attributes.
//
// Panics if logger is nil: callers passing nil indicate a wiring bug that
// should fail loudly during development rather than silently dropping
// context attributes.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if logger == nil {
		panic("logger.WithLogger called with nil logger")
	}
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the process default
// logger when ctx carries none (or ctx is nil).
func FromContext(ctx context.Context) *slog.Logger {
	return FromContextOrDefault(ctx, slog.Default())
}

// FromContextOrDefault returns the logger stored in ctx, or the provided
// fallback when ctx carries none (or ctx is nil).
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx == nil {
		return fallback
	}
	if l, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return fallback
}
