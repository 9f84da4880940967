package slogx

import (
	"context"
	"log/slog"
	"sync"
)

type loggerKey struct{}

type accessKey struct{}

// access collects attributes added while a request is served so the closing
// access line carries them too.
type access struct {
	mu    sync.Mutex
	attrs []any
}

func (a *access) add(args ...any) {
	a.mu.Lock()
	a.attrs = append(a.attrs, args...)
	a.mu.Unlock()
}

func (a *access) snapshot() []any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]any(nil), a.attrs...)
}

// WithContext returns ctx carrying logger.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the contextual logger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// With extends the contextual logger with args. Inside RequestLogger the
// args also land on the request's access line.
func With(ctx context.Context, args ...any) context.Context {
	if a, ok := ctx.Value(accessKey{}).(*access); ok {
		a.add(args...)
	}
	return WithContext(ctx, FromContext(ctx).With(args...))
}
