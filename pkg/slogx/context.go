package slogx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext stores a request-scoped logger in ctx. Handlers and services
// retrieve it with FromContext instead of carrying a logger around.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, falling back to the process
// default for background jobs and tests that never passed through the HTTP
// middleware.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return slog.Default()
	}
	return l
}

// WithRequestID derives a context whose logger tags every line with the
// request correlation id.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("req_id", reqID))
}

// WithSubject derives a context whose logger tags every line with the
// authenticated subject, so actions taken under a session trace back to the
// account that performed them.
func WithSubject(ctx context.Context, subjectID string) context.Context {
	return WithContext(ctx, FromContext(ctx).With("subject", subjectID))
}
