// Package schedule starts content jobs on a cron expression.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/workflow"
)

// Starter is the orchestrator surface the scheduler drives.
type Starter interface {
	StartContent(ctx context.Context, params workflow.ContentParams) (workflow.StartResult, error)
	Status(ctx context.Context, jobID string, kind jobs.Kind) (workflow.StatusView, error)
}

// Scheduler runs one content job per tick, skipping ticks while a content
// job is still running.
type Scheduler struct {
	expr    string
	count   int
	starter Starter
	logger  *slog.Logger
	cron    *cron.Cron

	mu      sync.Mutex
	ctx     context.Context
	entryID cron.EntryID
	running bool
}

// New returns nil when cfg has no content_cron.
func New(cfg *config.Config, starter Starter, logger *slog.Logger) (*Scheduler, error) {
	expr := strings.TrimSpace(cfg.Schedule.ContentCron)
	if expr == "" {
		return nil, nil
	}
	if _, err := cron.ParseStandard(expr); err != nil {
		return nil, fmt.Errorf("parse schedule.content_cron %q: %w", expr, err)
	}
	return &Scheduler{
		expr:    expr,
		count:   cfg.Schedule.ContentCount,
		starter: starter,
		logger:  logging.NewComponentLogger(logger, "schedule"),
		cron:    cron.New(),
	}, nil
}

// Start registers the entry and starts the cron loop. ctx bounds every
// triggered Start call.
func (s *Scheduler) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	s.ctx = ctx
	id, err := s.cron.AddFunc(s.expr, func() { s.Tick(s.context()) })
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}
	s.entryID = id
	s.cron.Start()
	s.running = true
	s.logger.Info("content schedule enabled",
		logging.String("cron", s.expr),
		logging.Int("count", s.count),
		logging.String("next_run", s.cron.Entry(id).Next.Format("2006-01-02 15:04:05")),
	)
	return nil
}

// Stop halts the cron loop and waits for a tick in progress.
func (s *Scheduler) Stop() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// Tick starts a content job unless one is already running. It reports
// whether a job was started.
func (s *Scheduler) Tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	view, err := s.starter.Status(ctx, "", jobs.KindContent)
	if err != nil {
		s.logger.Warn("scheduled run skipped; status lookup failed", logging.Error(err))
		return false
	}
	if view.IsRunning {
		jobID := ""
		if view.Job != nil {
			jobID = view.Job.ID
		}
		s.logger.Info("scheduled run skipped; content job still running", logging.JobID(jobID))
		return false
	}
	res, err := s.starter.StartContent(ctx, workflow.ContentParams{Count: s.count})
	if err != nil {
		logging.WarnWithContext(s.logger, "scheduled content run failed to start", "schedule_start_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "no posts this tick"),
		)
		return false
	}
	s.logger.Info("scheduled content run started",
		logging.JobID(res.JobID),
		logging.Int("count", res.TotalUnits),
	)
	return true
}
