package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
)

const (
	// MessageShutdown is recorded on jobs interrupted by orchestrator shutdown.
	MessageShutdown = "interrupted: orchestrator shut down"
	// MessageRestarted is recorded on jobs found running at startup.
	MessageRestarted = "interrupted: process restarted"
)

var (
	// ErrShuttingDown is returned by Start once Shutdown has begun.
	ErrShuttingDown = errors.New("orchestrator shutting down")
	// ErrUnknownKind is returned for a job kind with no registered pipeline.
	ErrUnknownKind = errors.New("no pipeline registered for kind")

	errStopRequested = errors.New("stop requested")
)

// StartResult is returned to callers as soon as a job is running.
type StartResult struct {
	JobID            string     `json:"jobId"`
	Kind             jobs.Kind  `json:"kind"`
	State            jobs.State `json:"state"`
	TotalUnits       int        `json:"totalUnits"`
	EstimatedSeconds int        `json:"estimatedSeconds,omitempty"`
}

// StatusView is the caller-facing snapshot of one job.
type StatusView struct {
	Job       *jobs.Job   `json:"job,omitempty"`
	IsRunning bool        `json:"isRunning"`
	Owned     bool        `json:"owned"`
	Video     *jobs.Video `json:"video,omitempty"`
	Posts     []jobs.Post `json:"posts,omitempty"`
}

// execution is the in-memory record of a job task. Everything except stop is
// touched only by the task goroutine.
type execution struct {
	m      *Manager
	jobID  string
	kind   jobs.Kind
	logger *slog.Logger
	stop   atomic.Bool

	progress   float64
	completed  int
	total      int
	stageLabel string
	agent      string
	iteration  int
}

func (x *execution) newRun(iteration, iterations int) *stage.Run {
	x.iteration = iteration
	return &stage.Run{
		JobID:      x.jobID,
		Kind:       x.kind,
		Iteration:  iteration,
		Iterations: iterations,
		Progress:   x.progress,
		Logger:     x.logger,
		Events:     x.m.hub,
	}
}

// boundary reports whether the job must stop before its next stage and the
// state it ends in.
func (x *execution) boundary(ctx context.Context) (jobs.State, bool) {
	if ctx.Err() != nil {
		return jobs.StateFailed, true
	}
	if x.stop.Load() {
		return jobs.StateCancelled, true
	}
	return "", false
}

// stepError remembers which stage produced an error.
type stepError struct {
	stage string
	err   error
}

func (e *stepError) Error() string { return e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }
