// Package cache provides the counter stores behind the ingress rate limiter.
package cache

import (
	"context"
	"time"
)

// RateLimitStore counts requests per key in fixed windows
type RateLimitStore interface {
	// Increment records one hit for key and returns the hit count in the
	// current window together with the time that window ends
	Increment(ctx context.Context, key string, window time.Duration) (count int64, resetAt time.Time, err error)
	// Close releases the store's resources
	Close() error
}
