// Package ratelimit throttles article generation per client.
//
// Generation runs are long and spend upstream quota, so the HTTP API
// admits them through a Limiter keyed by client address. The in-memory
// token bucket (MemoryLimiter) serves a single instance; the interface is
// the contract for anything shared.
package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a request identified by key should be allowed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow returns true if the request should proceed.
	// Returning an error signals a limiter malfunction; callers treat
	// errors as fail-open.
	Allow(ctx context.Context, key string) (bool, error)

	// Close releases resources (cleanup goroutines, connections).
	Close() error
}

// RetryHinter is implemented by limiters that can say how long a denied
// caller should wait.
type RetryHinter interface {
	RetryAfter() time.Duration
}

// NoopLimiter permits every request. Used when rate limiting is disabled.
type NoopLimiter struct{}

// Allow always returns true.
func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

// Close is a no-op.
func (NoopLimiter) Close() error { return nil }
