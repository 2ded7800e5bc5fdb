package capacity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs periodic recalibration on a cron schedule.
// Backends drift: thermal throttling, neighbor workloads on shared hosts,
// and driver updates all move real throughput away from the boot-time
// estimate.
type Scheduler struct {
	estimator *Estimator
	schedule  string
	cron      *cron.Cron
	mu        sync.Mutex
	logger    *slog.Logger
	running   bool
}

// NewScheduler creates a recalibration scheduler. schedule is a standard
// 5-field cron expression; empty disables scheduling.
func NewScheduler(estimator *Estimator, schedule string) *Scheduler {
	return &Scheduler{
		estimator: estimator,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    slog.Default().With("component", "capacity.scheduler"),
	}
}

// Start begins scheduled recalibration.
//
// Common cron expressions:
//   - "0 */6 * * *" - Every 6 hours
//   - "30 4 * * *"  - Daily at 04:30
//
// If no schedule is configured, Start does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("recalibration schedule not configured, skipping scheduler")
		return nil
	}

	// Validate cron expression
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.runRecalibration(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule recalibration: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("recalibration scheduler started", "schedule", s.schedule)

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runRecalibration executes one scheduled calibration. Traffic keeps
// flowing while it runs; an in-flight calibration is left alone.
func (s *Scheduler) runRecalibration(ctx context.Context) {
	s.logger.Info("starting scheduled recalibration")

	state, err := s.estimator.Calibrate(ctx)
	if err != nil {
		if errors.Is(err, ErrCalibrationRunning) {
			s.logger.Debug("recalibration skipped, calibration already in flight")
			return
		}
		s.logger.Error("scheduled recalibration failed, keeping previous estimate",
			"error", err,
		)
		return
	}

	s.logger.Info("scheduled recalibration completed",
		"throughput", state.MaxThroughput,
	)
}

// Stop stops the scheduler and waits for any running calibration job to
// complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("recalibration scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled recalibration time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
