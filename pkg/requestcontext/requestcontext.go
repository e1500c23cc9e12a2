// Package requestcontext carries request-scoped values (client address, request ID,
// request time) through context.Context so that services never read them from *http.Request.
package requestcontext

import (
	"context"
	"time"
)

// UnknownAddress is recorded when the edge did not supply a client address.
const UnknownAddress = "unknown"

type (
	contextKeyClientIP    struct{}
	contextKeyRequestID   struct{}
	contextKeyRequestTime struct{}
)

// WithClientIP stores the client address on the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}

// ClientIP returns the client address, or UnknownAddress if none was recorded.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(contextKeyClientIP{}).(string); ok && ip != "" {
		return ip
	}
	return UnknownAddress
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID{}).(string)
	return id
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, t)
}
