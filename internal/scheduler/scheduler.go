// Package scheduler drives the sync engine on a fixed interval and keeps the
// loop alive across individual cycle failures.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// CycleRunner is the unit of work the scheduler fires each tick.
// Satisfied by sync.Engine via a thin adapter in the application wiring.
type CycleRunner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to CycleRunner.
type RunnerFunc func(ctx context.Context) error

// Run implements CycleRunner.
func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler fires the runner immediately on start and then once per
// interval until the context is cancelled.
type Scheduler struct {
	logger   *zap.Logger
	runner   CycleRunner
	interval time.Duration
}

// New creates a scheduler for the given runner and interval.
func New(runner CycleRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		runner:   runner,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. A panicking or failing cycle is logged
// and the loop continues; only cancellation stops it.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scheduler started", zap.Duration("interval", s.interval))

	s.fire(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Cycle panicked", zap.Any("panic", r))
		}
	}()

	if err := s.runner.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("Cycle failed", zap.Error(err))
	}
}
