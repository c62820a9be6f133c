package stage

import (
	"context"
	"log/slog"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
)

// Stage describes the contract the workflow manager needs from each unit of
// pipeline work. S is the pipeline's state, shared by the stages of one job
// and never by two jobs.
type Stage[S any] interface {
	// Name is the stable stage key used for logs, status and metrics.
	Name() string
	// Agent is the display name of the worker performing the stage.
	Agent() string
	Execute(ctx context.Context, run *Run, state *S) error
	HealthCheck(ctx context.Context) Health
}

// Run locates one stage execution inside its job.
type Run struct {
	JobID string
	Kind  jobs.Kind
	// Iteration is 1-based inside a repeated phase and 0 otherwise.
	Iteration  int
	Iterations int
	// Progress is the job progress at the moment the stage started.
	Progress float64
	Logger   *slog.Logger
	Events   events.Emitter
}

// Emit publishes payload when the run has an event sink.
func (r *Run) Emit(payload events.Payload) {
	if r == nil || r.Events == nil {
		return
	}
	r.Events.Publish(payload)
}

// Log returns the run logger, never nil.
func (r *Run) Log() *slog.Logger {
	if r == nil || r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
