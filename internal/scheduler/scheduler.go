package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/stackpilot/stackpilot-backend/internal/platform/logger"
)

// Job is a named periodic task.
type Job struct {
	Name string
	Spec string // cron spec with seconds field, e.g. "0 */5 * * * *"
	Run  func()
}

type Scheduler struct {
	c   *cron.Cron
	log *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{c: cron.New(cron.WithSeconds()), log: log}
}

// Add registers a job; it does not start the scheduler.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %q has no run func", job.Name)
	}
	_, err := s.c.AddFunc(job.Spec, func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduled job panicked", "job", job.Name, "panic", r)
			}
		}()
		job.Run()
	})
	if err != nil {
		return fmt.Errorf("add job %q: %w", job.Name, err)
	}
	s.log.Info("scheduled job registered", "job", job.Name, "spec", job.Spec)
	return nil
}

func (s *Scheduler) Start() {
	s.c.Start()
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.c.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
