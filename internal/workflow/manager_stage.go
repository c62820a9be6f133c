package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/services"
	"reelfactory/internal/stage"
)

func runStage[S any](ctx context.Context, x *execution, step Step[S], run *stage.Run, state *S) error {
	name := step.Stage.Name()
	agent := step.Stage.Agent()
	stageCtx := withStageContext(ctx, name, uuid.NewString())
	logger := x.m.stageLogger(stageCtx, name, run.Iteration)
	run.Logger = logger

	if err := x.enterStage(stageCtx, step.label(), agent); err != nil {
		return err
	}

	started := time.Now()
	logger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("agent", agent),
		logging.Progress(x.progress),
	)

	execErr := step.Stage.Execute(stageCtx, run, state)
	elapsed := time.Since(started)
	if execErr != nil {
		x.setAgent(ctx, agent, jobs.AgentIdle, false)
		if errors.Is(execErr, context.Canceled) {
			logger.Debug("stage interrupted by shutdown", logging.Duration("stage_duration", elapsed))
			return &stepError{stage: name, err: execErr}
		}
		details := services.Details(execErr)
		logger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.Alert("stage_failure"),
			logging.Duration("stage_duration", elapsed),
			logging.String("error_message", strings.TrimSpace(stage.Message(execErr))),
			logging.String(logging.FieldErrorKind, details.Kind),
			logging.String(logging.FieldErrorHint, details.Hint),
			logging.Error(execErr),
		)
		return &stepError{stage: name, err: execErr}
	}

	x.setAgent(ctx, agent, jobs.AgentIdle, true)
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

// enterStage records the stage label and marks its agent active.
func (x *execution) enterStage(ctx context.Context, label, agent string) error {
	if _, err := x.m.store.UpdateJob(ctx, x.jobID, jobs.Patch{CurrentStage: &label}); err != nil {
		return stage.Persist("current stage", err)
	}
	x.stageLabel = label
	x.agent = agent
	x.publishStatus()
	x.setAgent(ctx, agent, jobs.AgentActive, false)
	return nil
}

// advance persists progress, and one more completed unit when unitDone is
// set, then reports the new status. Progress never moves backwards.
func (x *execution) advance(ctx context.Context, progress float64, unitDone bool) error {
	if progress < x.progress {
		progress = x.progress
	}
	if progress > 100 {
		progress = 100
	}
	patch := jobs.Patch{Progress: &progress}
	if unitDone {
		completed := x.completed + 1
		patch.CompletedUnits = &completed
	}
	job, err := x.m.store.UpdateJob(ctx, x.jobID, patch)
	if err != nil {
		return stage.Persist("progress", err)
	}
	x.progress = job.Progress
	x.completed = job.CompletedUnits
	x.publishStatus()
	return nil
}

func (x *execution) setTotalUnits(ctx context.Context, total int) error {
	if total == x.total {
		return nil
	}
	if _, err := x.m.store.UpdateJob(ctx, x.jobID, jobs.Patch{TotalUnits: &total}); err != nil {
		return stage.Persist("total units", err)
	}
	x.total = total
	return nil
}

// setAgent updates the agent registry. Failures are logged and never fail the
// job.
func (x *execution) setAgent(ctx context.Context, agent string, status jobs.AgentStatus, completed bool) {
	if agent == "" {
		return
	}
	writeCtx, cancel := detachedContext(ctx)
	defer cancel()
	record, err := x.m.store.SetAgentStatus(writeCtx, agent, status, completed)
	if err != nil {
		x.logger.Warn("agent status update failed",
			logging.String("agent", agent),
			logging.Error(err),
			logging.String(logging.FieldEventType, "agent_status_failed"),
			logging.String(logging.FieldImpact, "agent registry may show a stale status"),
		)
		return
	}
	x.m.hub.Publish(events.AgentStatus{
		JobID:          x.jobID,
		Agent:          record.Name,
		Status:         record.Status,
		TasksCompleted: record.TasksCompleted,
	})
}

func (x *execution) publishStatus() {
	x.m.hub.Publish(events.JobStatus{
		JobID:          x.jobID,
		Kind:           x.kind,
		State:          jobs.StateRunning,
		Progress:       x.progress,
		Stage:          x.stageLabel,
		Agent:          x.agent,
		Iteration:      x.iteration,
		CompletedUnits: x.completed,
		TotalUnits:     x.total,
	})
}
