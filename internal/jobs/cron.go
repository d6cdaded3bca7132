// Package jobs schedules recurring scouting passes.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	service "github.com/sandlin/cma-scout/internal/app"
	"github.com/sandlin/cma-scout/pkg/logger"
)

// PassStarter is the slice of the coordinator the scheduler needs.
type PassStarter interface {
	StartPass(ctx context.Context) error
}

// Scheduler triggers a scouting pass on a fixed interval. A trigger that
// lands while a pass is still running is skipped, not queued.
type Scheduler struct {
	cron    *cron.Cron
	starter PassStarter
	every   time.Duration
	logger  logger.Logger
}

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a scheduler that starts a pass every interval.
func NewScheduler(starter PassStarter, every time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		starter: starter,
		every:   every,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	return s
}

// Start registers the recurring pass and starts the cron loop. A
// non-positive interval disables scheduling; passes then run only via
// the API.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.every <= 0 {
		s.logger.Info(ctx, "scheduler disabled")
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.every)
	if _, err := s.cron.AddFunc(spec, func() { s.trigger(ctx) }); err != nil {
		return fmt.Errorf("%w: %v", ErrSchedule, err)
	}
	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", logger.String("interval", s.every.String()))
	return nil
}

func (s *Scheduler) trigger(ctx context.Context) {
	err := s.starter.StartPass(ctx)
	switch {
	case err == nil:
		s.logger.Info(ctx, "scheduled pass started")
	case errors.Is(err, service.ErrAlreadyRunning):
		s.logger.Warn(ctx, "scheduled pass skipped, previous pass still running")
	default:
		s.logger.Error(ctx, "scheduled pass failed to start", logger.Error(err))
	}
}

// Stop halts the cron loop. An in-flight pass is not interrupted.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
