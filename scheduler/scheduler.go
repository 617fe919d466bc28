// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"control-produccion/models"
)

// StaleLister finds active sessions older than a threshold.
type StaleLister interface {
	ListStale(ctx context.Context, threshold time.Duration) ([]models.ActiveSession, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	sessions  StaleLister
	schedule  string
	threshold time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance.
// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
func NewScheduler(sessions StaleLister, schedule string, threshold time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:      cron.New(),
		sessions:  sessions,
		schedule:  schedule,
		threshold: threshold,
		now:       time.Now,
		logger:    logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("stale_schedule", s.schedule))

	if _, err := s.cron.AddFunc(s.schedule, s.reportStale); err != nil {
		return fmt.Errorf("schedule stale session report: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reportStale() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.ReportStale(ctx); err != nil {
		s.logger.Error("failed to list stale sessions", zap.Error(err))
	}
}

// ReportStale logs every active session older than the threshold.
// Sessions are never closed here; an operator or supervisor must finalize them.
func (s *Scheduler) ReportStale(ctx context.Context) (int, error) {
	stale, err := s.sessions.ListStale(ctx, s.threshold)
	if err != nil {
		return 0, err
	}

	now := s.now()
	for _, session := range stale {
		s.logger.Warn("stale active session",
			zap.String("operator_id", session.OperatorID),
			zap.String("operator_name", session.OperatorName),
			zap.String("parent_batch", session.ParentBatchID),
			zap.String("session_key", session.SessionKey),
			zap.Time("started_at", session.StartedAt),
			zap.Duration("age", session.Elapsed(now)),
		)
	}
	if len(stale) > 0 {
		s.logger.Info("stale session report", zap.Int("count", len(stale)), zap.Duration("threshold", s.threshold))
	}
	return len(stale), nil
}
