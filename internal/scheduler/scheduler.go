// Package scheduler triggers settlement passes on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/turf-ledger/internal/models"
)

// ErrPassInProgress is returned when a pass is requested while another is running
var ErrPassInProgress = errors.New("settlement pass already in progress")

// PassRunner runs one settlement pass
type PassRunner interface {
	RunPass(ctx context.Context) (*models.PassSummary, error)
}

// Scheduler manages the scheduled settlement job
type Scheduler struct {
	cron            *cron.Cron
	runner          PassRunner
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	passTimeout     time.Duration
	gracefulTimeout time.Duration

	inPass atomic.Bool
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a new scheduler
func NewScheduler(runner PassRunner, logger *logrus.Logger) *Scheduler {
	entry := logger.WithField("component", "scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cron.PrintfLogger(entry))),
		),
		runner:          runner,
		logger:          entry,
		jobIDs:          make([]cron.EntryID, 0),
		passTimeout:     time.Hour,
		gracefulTimeout: 30 * time.Second,
		ctx:             ctx,
		cancel:          cancel,
	}
}

// ScheduleSettlement schedules settlement passes with a five-field cron expression
func (s *Scheduler) ScheduleSettlement(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(s.ctx, s.passTimeout)
		defer cancel()

		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, ErrPassInProgress) {
			s.logger.WithError(err).Error("Scheduled settlement pass failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("schedule", cronExpression).Info("Scheduled settlement pass")

	return nil
}

// RunOnce runs a pass now unless one is already running, in which case the
// request is skipped with ErrPassInProgress.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.PassSummary, error) {
	if !s.inPass.CompareAndSwap(false, true) {
		s.logger.Warn("Previous settlement pass still running, skipping")
		return nil, ErrPassInProgress
	}
	defer s.inPass.Store(false)

	return s.runner.RunPass(ctx)
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops scheduling new passes and cancels a running pass if it has not
// finished within the graceful timeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	done := s.cron.Stop().Done()
	s.isRunning = false

	select {
	case <-done:
	case <-time.After(s.gracefulTimeout):
		s.cancel()
		<-done
		s.logger.Warn("Running settlement pass canceled on shutdown")
	}
	s.cancel()
	s.logger.Info("Scheduler stopped")

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// PassInProgress reports whether a pass is currently executing
func (s *Scheduler) PassInProgress() bool {
	return s.inPass.Load()
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}

	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			entries = append(entries, entry)
		}
	}

	return entries
}
