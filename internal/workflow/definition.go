package workflow

import (
	"context"

	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
)

// ErrorPolicy decides what a stage error does to its job.
type ErrorPolicy int

const (
	// AbortOnError fails the job on the first stage error.
	AbortOnError ErrorPolicy = iota
	// ContinuePerIteration records the failed iteration and continues with
	// the next one.
	ContinuePerIteration
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort-on-error"
	case ContinuePerIteration:
		return "continue-per-iteration"
	default:
		return "unknown"
	}
}

// Step is one stage with its share of a phase iteration.
type Step[S any] struct {
	Stage stage.Stage[S]
	// Label is the human readable current stage shown in status views.
	Label string
	// Weight is relative to the other steps of the phase; zero counts as one.
	Weight float64
}

func (s Step[S]) label() string {
	if s.Label != "" {
		return s.Label
	}
	return stage.Label(s.Stage.Name())
}

func (s Step[S]) weight() float64 {
	if s.Weight <= 0 {
		return 1
	}
	return s.Weight
}

// Phase is a run of steps executed once, or once per iteration when Repeat
// is set.
type Phase[S any] struct {
	Name string
	// Weight is this phase's share of the job's 100 progress points.
	Weight float64
	// Repeat returns the iteration count from the state built so far.
	Repeat func(state *S) int
	// Counted phases own the job's unit counters: total units equal the
	// iteration count and each attempted iteration completes one unit.
	Counted bool
	Steps   []Step[S]
	// Before and After run around each iteration. After runs only when every
	// step of the iteration succeeded.
	Before func(ctx context.Context, run *stage.Run, state *S) error
	After  func(ctx context.Context, run *stage.Run, state *S) error
}

func (p Phase[S]) totalWeight() float64 {
	total := 0.0
	for _, step := range p.Steps {
		total += step.weight()
	}
	return total
}

// AgentInfo names a worker shown in the agent registry.
type AgentInfo struct {
	Name string
	Role string
}

// Definition describes one pipeline kind. P is the start parameter type and
// S the per-job state the stages share.
type Definition[P, S any] struct {
	Kind   jobs.Kind
	Policy ErrorPolicy
	Agents []AgentInfo
	Phases []Phase[S]

	// Validate checks and defaults start parameters.
	Validate func(params P) (P, error)
	// Units is the declared unit count known before any stage runs.
	Units func(params P) int
	// Estimate optionally predicts the run time in seconds.
	Estimate func(params P) int
	// Begin builds the job state.
	Begin func(ctx context.Context, run *stage.Run, params P) (*S, error)
	// Result reports the job output on completion.
	Result func(state *S) jobs.JobResult
	// ItemFailed records an isolated iteration failure.
	ItemFailed func(ctx context.Context, run *stage.Run, state *S, stageName string, err error) error
	// End runs after a job ends without completing, with a context that
	// outlives shutdown.
	End func(ctx context.Context, run *stage.Run, state *S, outcome jobs.State, message string) error
}

// Pipeline is a Definition with its type parameters erased so the Manager can
// hold every kind in one registry.
type Pipeline interface {
	PipelineKind() jobs.Kind
	AgentList() []AgentInfo
	HealthCheck(ctx context.Context) []stage.Health
	prepare(params any) (prepared, error)
	run(ctx context.Context, x *execution, params any)
}

type prepared struct {
	params   any
	units    int
	estimate int
}

// PipelineKind implements Pipeline.
func (d *Definition[P, S]) PipelineKind() jobs.Kind { return d.Kind }

// AgentList implements Pipeline.
func (d *Definition[P, S]) AgentList() []AgentInfo { return d.Agents }

// HealthCheck reports the health of every distinct stage.
func (d *Definition[P, S]) HealthCheck(ctx context.Context) []stage.Health {
	seen := make(map[string]bool)
	var out []stage.Health
	for _, phase := range d.Phases {
		for _, step := range phase.Steps {
			name := step.Stage.Name()
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, step.Stage.HealthCheck(ctx))
		}
	}
	return out
}

func (d *Definition[P, S]) prepare(raw any) (prepared, error) {
	params, ok := raw.(P)
	if !ok {
		if ptr, isPtr := raw.(*P); isPtr && ptr != nil {
			params, ok = *ptr, true
		}
	}
	if !ok {
		return prepared{}, invalidParams(d.Kind, raw)
	}
	if d.Validate != nil {
		validated, err := d.Validate(params)
		if err != nil {
			return prepared{}, err
		}
		params = validated
	}
	out := prepared{params: params}
	if d.Units != nil {
		out.units = d.Units(params)
	}
	if d.Estimate != nil {
		out.estimate = d.Estimate(params)
	}
	return out, nil
}
