package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Runner executes one collection cycle.
type Runner interface {
	RunCycle(ctx context.Context) (*CycleSummary, error)
}

// Scheduler runs collection cycles on a fixed interval. A cycle that is
// still in flight when the next tick arrives makes that tick a no-op rather
// than stacking cycles.
type Scheduler struct {
	runner       Runner
	interval     time.Duration
	cycleTimeout time.Duration
	running      atomic.Bool
}

// NewScheduler builds a scheduler around the runner.
func NewScheduler(runner Runner, interval, cycleTimeout time.Duration) *Scheduler {
	return &Scheduler{
		runner:       runner,
		interval:     interval,
		cycleTimeout: cycleTimeout,
	}
}

// Running reports whether a cycle is currently in flight.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// Run executes an immediate first cycle and then one per interval until the
// context ends.
func (s *Scheduler) Run(ctx context.Context) error {
	zap.L().Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("cycle_timeout", s.cycleTimeout),
	)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// Trigger starts a cycle in the background. It reports false when a cycle is
// already running.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	if !s.running.CompareAndSwap(false, true) {
		return false
	}
	go func() {
		defer s.running.Store(false)
		s.execute(ctx)
	}()
	return true
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		zap.L().Warn("previous cycle still running, skipping tick")
		return
	}
	defer s.running.Store(false)
	s.execute(ctx)
}

func (s *Scheduler) execute(ctx context.Context) {
	cycleCtx := ctx
	if s.cycleTimeout > 0 {
		var cancel context.CancelFunc
		cycleCtx, cancel = context.WithTimeout(ctx, s.cycleTimeout)
		defer cancel()
	}

	if _, err := s.runner.RunCycle(cycleCtx); err != nil {
		zap.L().Error("collection cycle failed", zap.Error(err))
	}
}
