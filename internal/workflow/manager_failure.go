package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/services"
	"reelfactory/internal/stage"
)

// completeJob persists the completed state. Events go out only after the
// write succeeds.
func (m *Manager) completeJob(ctx context.Context, x *execution, result jobs.JobResult) error {
	completed := jobs.StateCompleted
	job, err := m.store.UpdateJob(ctx, x.jobID, jobs.Patch{State: &completed, Result: &result})
	if err != nil {
		m.logger.Error("failed to persist job completion",
			logging.JobID(x.jobID),
			logging.Error(err),
		)
		return stage.Persist("job completion", err)
	}
	x.logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("completed_units", job.CompletedUnits),
		logging.Int("total_units", job.TotalUnits),
	)
	m.hub.Publish(events.JobStatus{
		JobID:          job.ID,
		Kind:           job.Kind,
		State:          job.State,
		Progress:       job.Progress,
		CompletedUnits: job.CompletedUnits,
		TotalUnits:     job.TotalUnits,
	})
	m.hub.Publish(events.JobCompleted{
		JobID:          job.ID,
		Kind:           job.Kind,
		CompletedUnits: job.CompletedUnits,
		TotalUnits:     job.TotalUnits,
		Result:         job.Result,
	})
	return nil
}

func (m *Manager) cancelJob(ctx context.Context, x *execution) {
	cancelled := jobs.StateCancelled
	if _, err := m.store.UpdateJob(ctx, x.jobID, jobs.Patch{State: &cancelled}); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			return
		}
		m.logger.Error("failed to persist job cancellation",
			logging.JobID(x.jobID),
			logging.Error(err),
		)
		return
	}
	x.logger.Info("job cancelled", logging.String(logging.FieldEventType, "job_cancelled"))
	m.hub.Publish(events.JobCancelled{JobID: x.jobID, Kind: x.kind})
}

func (m *Manager) failJob(ctx context.Context, x *execution, message string, cause error) {
	failed := jobs.StateFailed
	if _, err := m.store.UpdateJob(ctx, x.jobID, jobs.Patch{State: &failed, ErrorMessage: &message}); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			return
		}
		m.logger.Error("failed to persist job failure",
			logging.JobID(x.jobID),
			logging.Error(err),
		)
		return
	}

	if cause == nil {
		cause = errors.New(message)
	}
	m.setLastError(cause)

	details := services.Details(cause)
	logging.ErrorWithContext(x.logger, "job failed", "job_failure",
		logging.String("error_message", message),
		logging.String(logging.FieldErrorKind, details.Kind),
		logging.String(logging.FieldErrorHint, details.Hint),
		logging.Alert("job_failure"),
		logging.Error(cause),
	)
	m.hub.Publish(events.JobFailed{JobID: x.jobID, Kind: x.kind, Error: message})
}

// failureMessage renders the error recorded on a failed or cancelled job.
func (m *Manager) failureMessage(ctx context.Context, err error) string {
	if ctx.Err() != nil && m.isClosing() {
		return MessageShutdown
	}
	if errors.Is(err, errStopRequested) {
		return ""
	}
	stageName := ""
	var step *stepError
	if errors.As(err, &step) {
		stageName = step.stage
	}
	if err == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(stage.Message(err))
	if message == "" {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		return stageFailureMessage(stageName, "failed")
	}
	if stageName != "" && !strings.HasPrefix(message, stageName) {
		message = fmt.Sprintf("%s: %s", stageName, message)
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}
