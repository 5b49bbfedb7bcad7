package ratelimit

import (
	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
	"github.com/stackpilot/stackpilot-backend/internal/scheduler"
)

// SweepJob returns a scheduler job that evicts expired in-memory windows.
func SweepJob(l *MemoryLimiter, spec string, log *logger.Logger) scheduler.Job {
	if log == nil {
		log = logger.Nop()
	}
	return scheduler.Job{
		Name: "ratelimit-sweep",
		Spec: spec,
		Run: func() {
			if n := l.Sweep(); n > 0 {
				log.Debug("rate limiter windows swept", "removed", n, "remaining", l.Len())
			}
		},
	}
}
