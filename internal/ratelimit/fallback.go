package ratelimit

import (
	"context"
	"sync/atomic"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// FallbackLimiter asks the primary limiter first and degrades to the secondary
// one when the primary errors. Only state changes are logged.
type FallbackLimiter struct {
	primary   Limiter
	secondary Limiter
	log       *logger.Logger
	degraded  atomic.Bool
}

func NewFallbackLimiter(primary, secondary Limiter, log *logger.Logger) *FallbackLimiter {
	if log == nil {
		log = logger.Nop()
	}
	return &FallbackLimiter{primary: primary, secondary: secondary, log: log}
}

func (l *FallbackLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	d, err := l.primary.Allow(ctx, key)
	if err == nil {
		if l.degraded.CompareAndSwap(true, false) {
			l.log.WithContext(ctx).Info("rate limiter primary recovered")
		}
		return d, nil
	}
	if l.degraded.CompareAndSwap(false, true) {
		l.log.WithContext(ctx).Warn("rate limiter primary unavailable, using in-memory counters", "error", err)
	}
	return l.secondary.Allow(ctx, key)
}

// Degraded reports whether requests are currently served by the secondary.
func (l *FallbackLimiter) Degraded() bool {
	return l.degraded.Load()
}
