package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter gates requests per client key in fixed windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

var errInvalidPolicy = errors.New("rate limiter requires positive limit and window")

func normalizeKey(key string) string {
	if key == "" {
		return "unknown"
	}
	return key
}

func decide(count int64, limit int, ttl time.Duration) Decision {
	d := Decision{Limit: limit, Allowed: count <= int64(limit)}
	if rem := int64(limit) - count; rem > 0 {
		d.Remaining = int(rem)
	}
	if !d.Allowed {
		if ttl < 0 {
			ttl = 0
		}
		d.RetryAfter = ttl
	}
	return d
}
