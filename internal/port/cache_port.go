package port

import (
	"context"
	"time"
)

// Cache is a keyed soft-state store used for listing invalidation and rate
// counters. It is never correctness-critical; callers tolerate failures.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePattern(ctx context.Context, pattern string) error

	// IncrementWithExpiry increments the counter at key, setting ttl when
	// the key is created, and returns the new value.
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
