// Package ratelimit throttles repeat submissions per normalized identity.
//
// The limiter runs a fixed window: the first submission for an identity
// opens a window of windowDuration; submissions increment a counter until
// maxRequests, after which they are denied until the window expires.
//
// The default in-memory store is single-process. Behind more than one
// server instance it cannot provide a global guarantee; deployments that
// scale out must use the Redis store instead.
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds until a retry can succeed; 0 when allowed
}

// Store counts submissions per identity key within a fixed window.
// Implementations must be safe for concurrent use and must not hold any
// lock across network calls.
type Store interface {
	// Increment records one submission for key and reports whether it is
	// within limit. A new window opens when none exists or the previous
	// one has expired.
	Increment(ctx context.Context, key string, limit int, window time.Duration) (*Decision, error)

	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

// Limiter applies the configured policy over a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLimiter creates a Limiter. Non-positive limit or window fall back to
// the reference policy of 3 requests per 60 seconds.
func NewLimiter(store Store, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 60 * time.Second
	}
	l := &Limiter{
		store:  store,
		limit:  limit,
		window: window,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a submission for the identity and reports whether it is
// admitted under the current window.
func (l *Limiter) Allow(ctx context.Context, identity string) (*Decision, error) {
	return l.store.Increment(ctx, identity, l.limit, l.window)
}

// NormalizeIdentity lowercases and trims the limiting key so "Ops@Fleet.CO "
// and "ops@fleet.co" share one window. Only this normalized key is retained
// between requests; no other submitter data outlives the request.
func NormalizeIdentity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func retryAfterSeconds(allowed bool, resetAt time.Time, now time.Time) int {
	if allowed {
		return 0
	}
	seconds := int(resetAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
