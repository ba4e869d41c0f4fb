// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ctxutil carries the per-request values the login pipeline threads
// through [context.Context]: the correlation ID, a logger pre-tagged with it,
// and the verified caller claims (nil for anonymous callers).
package ctxutil

import (
	"context"
	"log/slog"

	"github.com/taibuivan/bcbbs/internal/platform/sec"
)

// valueKey is unexported so no other package can read or overwrite these slots.
type valueKey uint8

const (
	requestIDKey valueKey = iota + 1
	loggerKey
	claimsKey
)

// WithRequestID tags ctx with the correlation ID echoed in X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns "" when the request was never tagged.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// GetLogger falls back to [slog.Default] outside an HTTP request, e.g. in the
// challenge purge loop.
func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithAuthUser records the claims of a verified bearer token.
func WithAuthUser(ctx context.Context, claims *sec.AuthClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetAuthUser returns nil for anonymous callers.
func GetAuthUser(ctx context.Context) *sec.AuthClaims {
	claims, _ := ctx.Value(claimsKey).(*sec.AuthClaims)
	return claims
}
