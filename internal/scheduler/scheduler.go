// Package scheduler runs the daily recommendation and settlement jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/linelogic/internal/models"
	"github.com/yourusername/linelogic/internal/recommend"
	"github.com/yourusername/linelogic/internal/settlement"
)

// Recommender produces the decisions for a date
type Recommender interface {
	RecommendDate(ctx context.Context, date time.Time) (*recommend.Report, error)
}

// Settler settles open decisions through a date
type Settler interface {
	SettleDate(ctx context.Context, date time.Time) (*settlement.Summary, error)
}

// JobFunc is a job that works on a calendar day
type JobFunc func(ctx context.Context, day time.Time) error

// Scheduler manages scheduled jobs
type Scheduler struct {
	cron            *cron.Cron
	loc             *time.Location
	logger          *logrus.Logger
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	jobTimeout      time.Duration
	gracefulTimeout time.Duration
	now             func() time.Time
}

// NewScheduler creates a scheduler whose cron expressions and job dates use loc
func NewScheduler(loc *time.Location, jobTimeout time.Duration, logger *logrus.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if jobTimeout <= 0 {
		jobTimeout = 10 * time.Minute
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(loc)),
		loc:             loc,
		logger:          logger,
		jobIDs:          make([]cron.EntryID, 0),
		jobTimeout:      jobTimeout,
		gracefulTimeout: 30 * time.Second,
		now:             time.Now,
	}
}

// ScheduleRecommend runs the recommendation pipeline for the current day
func (s *Scheduler) ScheduleRecommend(cronExpression string, r Recommender) (cron.EntryID, error) {
	return s.Schedule("recommend", cronExpression, 0, func(ctx context.Context, day time.Time) error {
		report, err := r.RecommendDate(ctx, day)
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"decisions":    len(report.Decisions),
			"no_picks":     len(report.NoPicks),
			"skipped":      len(report.Skipped),
			"total_staked": report.TotalStaked.StringFixed(2),
		}).Info("Scheduled recommendation run completed")
		return nil
	})
}

// ScheduleSettle settles decisions through the previous day
func (s *Scheduler) ScheduleSettle(cronExpression string, st Settler) (cron.EntryID, error) {
	return s.Schedule("settle", cronExpression, -1, func(ctx context.Context, day time.Time) error {
		summary, err := st.SettleDate(ctx, day)
		if err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"settled":     summary.Settled,
			"pending":     summary.Pending,
			"profit_loss": summary.ProfitLoss.StringFixed(2),
		}).Info("Scheduled settlement completed")
		return nil
	})
}

// Schedule adds a named job. The job receives today's date shifted by
// dayOffset days.
func (s *Scheduler) Schedule(name, cronExpression string, dayOffset int, job JobFunc) (cron.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return 0, fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		s.run(name, dayOffset, job)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to add %s job: %w", name, err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": cronExpression,
	}).Info("Scheduled job")

	return entryID, nil
}

func (s *Scheduler) run(name string, dayOffset int, job JobFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	local := s.now().In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day()+dayOffset, 0, 0, 0, 0, time.UTC)
	entry := s.logger.WithFields(logrus.Fields{
		"job":  name,
		"date": day.Format(models.DateLayout),
	})
	entry.Info("Starting scheduled job")

	start := time.Now()
	if err := job(ctx, day); err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return err
	}
	entry.WithField("duration_ms", time.Since(start).Milliseconds()).Debug("Scheduled job finished")
	return nil
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

// Stop waits for running jobs to finish, up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
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
			nextTime := entry.Next
			if nextRun.IsZero() || nextTime.Before(nextRun) {
				nextRun = nextTime
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

// RunNow runs a scheduled entry synchronously
func (s *Scheduler) RunNow(id cron.EntryID) error {
	entry := s.cron.Entry(id)
	if !entry.Valid() {
		return fmt.Errorf("no scheduled job with id %d", id)
	}
	entry.Job.Run()
	return nil
}
