package workflow

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

func (d *Definition[P, S]) run(ctx context.Context, x *execution, raw any) {
	params, _ := raw.(P)
	var state *S
	outcome, err := d.guardedDrive(ctx, x, params, &state)
	d.finish(ctx, x, state, outcome, err)
}

// guardedDrive turns a panicking stage into a failed job.
func (d *Definition[P, S]) guardedDrive(ctx context.Context, x *execution, params P, state **S) (outcome jobs.State, err error) {
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("pipeline panic",
				logging.String(logging.FieldEventType, "pipeline_panic"),
				logging.Alert("pipeline_panic"),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())),
			)
			outcome = jobs.StateFailed
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return d.drive(ctx, x, params, state)
}

func (d *Definition[P, S]) drive(ctx context.Context, x *execution, params P, statep **S) (jobs.State, error) {
	if d.Begin != nil {
		state, err := d.Begin(ctx, x.newRun(0, 0), params)
		if err != nil {
			return jobs.StateFailed, err
		}
		*statep = state
	}
	if *statep == nil {
		*statep = new(S)
	}
	state := *statep

	base := 0.0
	for _, phase := range d.Phases {
		iterations := 1
		repeated := phase.Repeat != nil
		if repeated {
			iterations = phase.Repeat(state)
		}
		if phase.Counted {
			if err := x.setTotalUnits(ctx, iterations); err != nil {
				return jobs.StateFailed, err
			}
		}
		share := phase.Weight
		if iterations > 0 {
			share = phase.Weight / float64(iterations)
		}

		for i := 1; i <= iterations; i++ {
			if outcome, stop := x.boundary(ctx); stop {
				return outcome, boundaryError(ctx, outcome)
			}
			run := x.newRun(0, 0)
			if repeated {
				run = x.newRun(i, iterations)
			}
			iterBase := base + share*float64(i-1)

			err := d.iterate(ctx, x, phase, run, state, iterBase, share)
			if err == nil {
				continue
			}
			if errors.Is(err, errStopRequested) {
				return jobs.StateCancelled, err
			}
			if !d.isolates(ctx, err) {
				if stageErr, ok := stage.AsError(err); ok {
					stageErr.Abort = true
				}
				return jobs.StateFailed, err
			}
			if recErr := d.recordItemFailure(ctx, x, run, state, err); recErr != nil {
				return jobs.StateFailed, recErr
			}
			if err := x.advance(ctx, iterBase+share, phase.Counted); err != nil {
				return jobs.StateFailed, err
			}
		}
		base += phase.Weight
	}
	return jobs.StateCompleted, nil
}

// iterate runs one pass over a phase's steps. Progress moves through
// [iterBase, iterBase+share] in proportion to step weights.
func (d *Definition[P, S]) iterate(ctx context.Context, x *execution, phase Phase[S], run *stage.Run, state *S, iterBase, share float64) error {
	if phase.Before != nil {
		if err := phase.Before(ctx, run, state); err != nil {
			return &stepError{stage: phase.Name, err: err}
		}
	}

	total := phase.totalWeight()
	done := 0.0
	for idx, step := range phase.Steps {
		if idx > 0 {
			if outcome, stop := x.boundary(ctx); stop {
				return boundaryError(ctx, outcome)
			}
		}
		run.Progress = x.progress
		if err := runStage(ctx, x, step, run, state); err != nil {
			return err
		}
		done += step.weight()
		last := idx == len(phase.Steps)-1
		progress := iterBase + share
		if total > 0 && !last {
			progress = iterBase + share*(done/total)
		}
		if err := x.advance(ctx, progress, last && phase.Counted && phase.After == nil); err != nil {
			return err
		}
	}

	if phase.After != nil {
		run.Progress = x.progress
		if err := phase.After(ctx, run, state); err != nil {
			return &stepError{stage: phase.Name, err: err}
		}
		if phase.Counted {
			if err := x.advance(ctx, iterBase+share, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// isolates reports whether err stays inside its iteration. Under
// ContinuePerIteration every stage failure does; store failures and
// cancellation never do.
func (d *Definition[P, S]) isolates(ctx context.Context, err error) bool {
	if d.Policy != ContinuePerIteration || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, stage.ErrPersist) || errors.Is(err, context.Canceled) {
		return false
	}
	var step *stepError
	return errors.As(err, &step)
}

func (d *Definition[P, S]) recordItemFailure(ctx context.Context, x *execution, run *stage.Run, state *S, err error) error {
	stageName := ""
	var step *stepError
	if errors.As(err, &step) {
		stageName = step.stage
	}
	message := stage.Message(err)

	if d.ItemFailed != nil {
		if recErr := d.ItemFailed(ctx, run, state, stageName, err); recErr != nil {
			return recErr
		}
	}
	logging.WarnWithContext(x.logger, "iteration failed", "iteration_failed",
		logging.Int("iteration", run.Iteration),
		logging.String(logging.FieldStage, stageName),
		logging.String("error_message", message),
		logging.String(logging.FieldImpact, "iteration skipped; job continues"),
	)
	x.m.hub.Publish(events.ItemFailed{
		JobID:     x.jobID,
		Iteration: run.Iteration,
		Stage:     stageName,
		Error:     message,
	})
	return nil
}

func (d *Definition[P, S]) finish(ctx context.Context, x *execution, state *S, outcome jobs.State, err error) {
	detached, cancel := detachedContext(ctx)
	defer cancel()

	if outcome == jobs.StateCompleted {
		result := jobs.JobResult{}
		if d.Result != nil && state != nil {
			result = d.Result(state)
		}
		completeErr := x.m.completeJob(detached, x, result)
		if completeErr == nil {
			return
		}
		outcome, err = jobs.StateFailed, completeErr
	}

	message := x.m.failureMessage(ctx, err)
	if d.End != nil && state != nil {
		if endErr := d.End(detached, x.newRun(x.iteration, 0), state, outcome, message); endErr != nil {
			x.logger.Warn("pipeline cleanup failed",
				logging.Error(endErr),
				logging.String(logging.FieldEventType, "pipeline_cleanup_failed"),
				logging.String(logging.FieldImpact, "job entities may keep a stale status"),
			)
		}
	}
	if outcome == jobs.StateCancelled {
		x.m.cancelJob(detached, x)
		return
	}
	x.m.failJob(detached, x, message, err)
}

func boundaryError(ctx context.Context, outcome jobs.State) error {
	if outcome == jobs.StateCancelled {
		return errStopRequested
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return errStopRequested
}
