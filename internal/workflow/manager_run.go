package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/services"
	"reelfactory/internal/stage"
)

// StartContent starts a content post job.
func (m *Manager) StartContent(ctx context.Context, params ContentParams) (StartResult, error) {
	return m.Start(ctx, jobs.KindContent, params)
}

// StartVideo starts a video job.
func (m *Manager) StartVideo(ctx context.Context, params VideoParams) (StartResult, error) {
	return m.Start(ctx, jobs.KindVideo, params)
}

// Start validates params, persists a new job, marks it running and launches
// its task. It returns without waiting for any stage.
func (m *Manager) Start(ctx context.Context, kind jobs.Kind, params any) (StartResult, error) {
	if m.isClosing() {
		return StartResult{}, ErrShuttingDown
	}
	p, err := m.pipeline(kind)
	if err != nil {
		return StartResult{}, services.Wrap(services.ErrValidation, "workflow", "start", "unsupported job kind", err)
	}
	prep, err := p.prepare(params)
	if err != nil {
		return StartResult{}, err
	}
	if err := m.EnsureAgents(ctx); err != nil {
		return StartResult{}, stage.Persist("agents", err)
	}

	job, err := m.store.CreateJob(ctx, kind, prep.params, prep.units)
	if err != nil {
		return StartResult{}, stage.Persist("job", err)
	}
	jobCreated(job.ID)

	x := &execution{
		m:      m,
		jobID:  job.ID,
		kind:   kind,
		total:  prep.units,
		logger: m.logger.With(logging.Job(job.ID, string(kind))...),
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		m.abandon(job.ID, ErrShuttingDown.Error())
		return StartResult{}, ErrShuttingDown
	}
	m.active[job.ID] = x
	m.wg.Add(1)
	m.mu.Unlock()

	running := jobs.StateRunning
	startedAt := m.now()
	job, err = m.store.UpdateJob(ctx, job.ID, jobs.Patch{State: &running, StartedAt: &startedAt})
	if err != nil {
		m.unregister(x.jobID)
		m.wg.Done()
		if stopped, ok := m.cancelledBeforeStart(ctx, x, err); ok {
			stopped.EstimatedSeconds = prep.estimate
			return stopped, nil
		}
		m.abandon(x.jobID, "failed to start: "+err.Error())
		return StartResult{}, stage.Persist("job start", err)
	}

	x.logger.Info("job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.Int("total_units", prep.units),
	)
	m.hub.Publish(events.JobStatus{
		JobID:      job.ID,
		Kind:       kind,
		State:      jobs.StateRunning,
		TotalUnits: prep.units,
	})

	go m.runJob(x, p, prep.params)

	return StartResult{
		JobID:            job.ID,
		Kind:             kind,
		State:            job.State,
		TotalUnits:       job.TotalUnits,
		EstimatedSeconds: prep.estimate,
	}, nil
}

// cancelledBeforeStart reports a job that Stop cancelled between its creation
// and its move to running.
func (m *Manager) cancelledBeforeStart(ctx context.Context, x *execution, err error) (StartResult, bool) {
	if !errors.Is(err, jobs.ErrInvalidTransition) {
		return StartResult{}, false
	}
	job, getErr := m.store.GetJob(ctx, x.jobID)
	if getErr != nil || job == nil || job.State != jobs.StateCancelled {
		return StartResult{}, false
	}
	x.logger.Info("job cancelled before start", logging.String(logging.FieldEventType, "job_cancelled"))
	return StartResult{
		JobID:      job.ID,
		Kind:       job.Kind,
		State:      job.State,
		TotalUnits: job.TotalUnits,
	}, true
}

// abandon fails a job that never reached its task.
func (m *Manager) abandon(jobID, message string) {
	failed := jobs.StateFailed
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.store.UpdateJob(ctx, jobID, jobs.Patch{State: &failed, ErrorMessage: &message}); err != nil {
		m.logger.Error("failed to record abandoned job", logging.JobID(jobID), logging.Error(err))
	}
}

func (m *Manager) runJob(x *execution, p Pipeline, params any) {
	defer m.wg.Done()
	defer m.unregister(x.jobID)

	ctx := services.WithJobID(m.baseCtx, x.jobID)
	ctx = services.WithKind(ctx, string(x.kind))

	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, x.jobID)
	defer func() {
		hbCancel()
		hbWG.Wait()
	}()

	p.run(ctx, x, params)
}

// Stop requests cancellation. A running job stops before its next stage; a
// terminal job is left untouched and Stop still succeeds.
func (m *Manager) Stop(ctx context.Context, jobID string) error {
	m.mu.RLock()
	x := m.active[jobID]
	m.mu.RUnlock()
	if x != nil {
		if !x.stop.Swap(true) {
			x.logger.Info("stop requested", logging.String(logging.FieldEventType, "job_stop_requested"))
		}
		return nil
	}

	job, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return stage.Persist("job lookup", err)
	}
	if job == nil {
		return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if job.State.IsTerminal() {
		return nil
	}

	// Not owned by this process; nothing will observe a flag, so record the
	// cancellation directly.
	cancelled := jobs.StateCancelled
	if _, err := m.store.UpdateJob(ctx, jobID, jobs.Patch{State: &cancelled}); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			return nil
		}
		return stage.Persist("job cancel", err)
	}
	m.hub.Publish(events.JobCancelled{JobID: jobID, Kind: job.Kind})
	return nil
}

// Shutdown stops accepting jobs, cancels in-flight collaborator calls and
// waits for job tasks up to the configured grace period or until ctx ends.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		return
	}
	m.closing = true
	inflight := len(m.active)
	m.mu.Unlock()

	if inflight > 0 {
		m.logger.Info("interrupting running jobs", logging.Int("jobs", inflight))
	}
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	grace := m.cfg.ShutdownGrace()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		m.logger.Warn("job tasks still running after shutdown grace",
			logging.Duration("grace", grace),
			logging.String(logging.FieldEventType, "shutdown_grace_exceeded"),
			logging.String(logging.FieldImpact, "interrupted jobs may remain running until the next start"),
		)
	case <-ctx.Done():
	}
}

// Reconcile fails every job left non-terminal by a previous process. It must
// run before the manager accepts new jobs.
func (m *Manager) Reconcile(ctx context.Context) ([]string, error) {
	ids, err := m.store.FailInterrupted(ctx, MessageRestarted)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		job, getErr := m.store.GetJob(ctx, id)
		kind := jobs.Kind("")
		if getErr == nil && job != nil {
			kind = job.Kind
		}
		m.hub.Publish(events.JobFailed{JobID: id, Kind: kind, Error: MessageRestarted})
	}
	if len(ids) > 0 {
		m.logger.Warn("marked interrupted jobs failed",
			logging.Int("jobs", len(ids)),
			logging.String(logging.FieldEventType, "jobs_reconciled"),
			logging.String(logging.FieldImpact, "jobs running at the last shutdown did not finish"),
		)
	}
	return ids, nil
}
