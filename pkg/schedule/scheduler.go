// Package schedule runs exports periodically on a cron schedule.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ccollicutt/dropboxlog/pkg/logging"
)

// Job is the work run on each tick.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. Standard five-field expressions
// and descriptors such as "@hourly" or "@every 5m" are accepted.
type Scheduler struct {
	spec    string
	job     Job
	cron    *cron.Cron
	mu      sync.Mutex
	logger  logrus.FieldLogger
	running bool
}

// New creates a scheduler for spec. It does nothing until Start.
func New(spec string, job Job, logger logrus.FieldLogger) *Scheduler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scheduler{
		spec:   spec,
		job:    job,
		cron:   newCron(),
		logger: logger.WithField("component", "scheduler"),
	}
}

// Start schedules the job. An empty spec is a no-op. The scheduler stops
// when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.spec == "" {
		s.logger.Info("export schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.spec, err)
	}

	s.cron = newCron()
	if _, err := s.cron.AddFunc(s.spec, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule export: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.WithField("schedule", s.spec).Info("export scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// newCron skips a tick while the previous export is still running.
func newCron() *cron.Cron {
	return cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
}

func (s *Scheduler) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	s.logger.Debug("starting scheduled export")
	if err := s.job(ctx); err != nil {
		s.logger.WithError(err).Error("scheduled export failed")
	}
}

// Stop stops the scheduler and waits for a running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("export scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled export time, or nil if nothing is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 || !s.running {
		return nil
	}

	next := entries[0].Next
	return &next
}
