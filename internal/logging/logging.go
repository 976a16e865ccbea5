// Package logging provides the process-wide structured logger.
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

var base = newLogger()

func newLogger() *slog.Logger {
	level := parseLevel(os.Getenv("TENX_LOG_LEVEL"))
	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// With returns a logger scoped to a named component, e.g. logging.With("router").
func With(component string) *slog.Logger {
	return base.With("component", component)
}

// Default returns the process-wide base logger.
func Default() *slog.Logger {
	return base
}

// FromContext returns a component logger that also carries request-scoped
// attributes, if any were attached via WithContext.
func FromContext(ctx context.Context, component string) *slog.Logger {
	l := With(component)
	if v := ctx.Value(ctxKey{}); v != nil {
		if attrs, ok := v.([]any); ok {
			l = l.With(attrs...)
		}
	}
	return l
}

type ctxKey struct{}

// WithContext attaches extra attributes (session id, turn id, ...) that
// FromContext will include on every subsequent log line for this context.
func WithContext(ctx context.Context, attrs ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, attrs)
}
