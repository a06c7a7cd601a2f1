package apiserver

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

func withRequestLogger(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// requestLogger returns the per-request logger attached by
// RequestLabel, falling back to a no-op logger when called outside a
// request (e.g. from a test).
func requestLogger(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}
