package workflow_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/services"
	"reelfactory/internal/stage"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

type batchState struct {
	mu        sync.Mutex
	count     int
	published []int
	failed    []int
	ended     jobs.State
}

func (s *batchState) publishedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.published)
}

type fakeStage[S any] struct {
	name  string
	agent string
	fn    func(ctx context.Context, run *stage.Run, state *S) error
}

func (f fakeStage[S]) Name() string  { return f.name }
func (f fakeStage[S]) Agent() string { return f.agent }

func (f fakeStage[S]) Execute(ctx context.Context, run *stage.Run, state *S) error {
	if f.fn == nil {
		return nil
	}
	return f.fn(ctx, run, state)
}

func (f fakeStage[S]) HealthCheck(context.Context) stage.Health { return stage.Healthy(f.name) }

type batchHooks struct {
	draft   func(ctx context.Context, run *stage.Run, state *batchState) error
	publish func(ctx context.Context, run *stage.Run, state *batchState) error
}

func batchPipeline(cfg *config.Config, hooks batchHooks) *workflow.Definition[workflow.ContentParams, batchState] {
	publish := func(ctx context.Context, run *stage.Run, state *batchState) error {
		if hooks.publish != nil {
			if err := hooks.publish(ctx, run, state); err != nil {
				return err
			}
		}
		state.mu.Lock()
		state.published = append(state.published, run.Iteration)
		state.mu.Unlock()
		return nil
	}
	return &workflow.Definition[workflow.ContentParams, batchState]{
		Kind:   jobs.KindContent,
		Policy: workflow.ContinuePerIteration,
		Agents: []workflow.AgentInfo{{Name: "Drafter", Role: "drafts"}, {Name: "Publisher", Role: "publishes"}},
		Phases: []workflow.Phase[batchState]{{
			Name:    "post",
			Weight:  100,
			Counted: true,
			Repeat:  func(s *batchState) int { return s.count },
			Steps: []workflow.Step[batchState]{
				{Stage: fakeStage[batchState]{name: "draft", agent: "Drafter", fn: hooks.draft}, Label: "Drafting"},
				{Stage: fakeStage[batchState]{name: "publish", agent: "Publisher", fn: publish}, Label: "Publishing"},
			},
		}},
		Validate: workflow.ContentValidator(cfg),
		Units:    func(p workflow.ContentParams) int { return p.Count },
		Estimate: func(p workflow.ContentParams) int { return p.Count * 30 },
		Begin: func(_ context.Context, _ *stage.Run, p workflow.ContentParams) (*batchState, error) {
			return &batchState{count: p.Count}, nil
		},
		ItemFailed: func(_ context.Context, run *stage.Run, state *batchState, _ string, _ error) error {
			state.mu.Lock()
			state.failed = append(state.failed, run.Iteration)
			state.mu.Unlock()
			return nil
		},
		Result: func(state *batchState) jobs.JobResult {
			return jobs.JobResult{FailedIterations: state.failed}
		},
		End: func(_ context.Context, _ *stage.Run, state *batchState, outcome jobs.State, _ string) error {
			state.ended = outcome
			return nil
		},
	}
}

func newManager(t *testing.T, pipelines ...workflow.Pipeline) (*workflow.Manager, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, events.NewHub(4096), nil, pipelines...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mgr.Shutdown(ctx)
	})
	return mgr, store
}

// awaitTerminal collects the events of jobID up to its terminal event.
func awaitTerminal(t *testing.T, sub *events.Subscription, jobID string) []events.Envelope {
	t.Helper()
	timeout := time.After(10 * time.Second)
	var out []events.Envelope
	for {
		select {
		case env, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed before terminal event")
			}
			if env.JobID != jobID {
				continue
			}
			out = append(out, env)
			if env.Name.IsTerminal() {
				return out
			}
		case <-timeout:
			t.Fatalf("timed out waiting for terminal event of %s", jobID)
		}
	}
}

func countNamed(envs []events.Envelope, name events.Name) int {
	n := 0
	for _, env := range envs {
		if env.Name == name {
			n++
		}
	}
	return n
}

func mustJob(t *testing.T, store *jobs.Store, id string) *jobs.Job {
	t.Helper()
	job, err := store.GetJob(context.Background(), id)
	if err != nil || job == nil {
		t.Fatalf("GetJob(%s): %v %v", id, job, err)
	}
	return job
}

func TestBatchCompletesEveryIteration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{})
	var state *batchState
	begin := def.Begin
	def.Begin = func(ctx context.Context, run *stage.Run, p workflow.ContentParams) (*batchState, error) {
		s, err := begin(ctx, run, p)
		state = s
		return s, err
	}
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 5})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	if res.State != jobs.StateRunning || res.TotalUnits != 5 || res.EstimatedSeconds != 150 {
		t.Fatalf("unexpected start result: %+v", res)
	}

	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobCompleted {
		t.Fatalf("expected job_completed, got %s", last.Name)
	}

	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateCompleted || job.Progress != 100 {
		t.Fatalf("expected completed at 100, got %s at %v", job.State, job.Progress)
	}
	if job.CompletedUnits != 5 || job.TotalUnits != 5 {
		t.Fatalf("expected 5/5 units, got %d/%d", job.CompletedUnits, job.TotalUnits)
	}
	if job.CurrentStage != "" {
		t.Fatalf("expected cleared stage, got %q", job.CurrentStage)
	}
	if got := state.publishedCount(); got != 5 {
		t.Fatalf("expected 5 published iterations, got %d", got)
	}
}

func TestBatchIsolatesFailedIteration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{
		draft: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration == 3 {
				return services.Wrap(services.ErrExternal, "draft", "complete", "model unavailable", nil)
			}
			return nil
		},
	})
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 5})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)

	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateCompleted {
		t.Fatalf("expected completed, got %s (%s)", job.State, job.ErrorMessage)
	}
	if job.CompletedUnits != 5 {
		t.Fatalf("failed iteration should still count, got %d units", job.CompletedUnits)
	}
	if len(job.Result.FailedIterations) != 1 || job.Result.FailedIterations[0] != 3 {
		t.Fatalf("expected iteration 3 recorded as failed, got %v", job.Result.FailedIterations)
	}
	if countNamed(envs, events.NameItemFailed) != 1 {
		t.Fatalf("expected one item_failed event")
	}
	for _, env := range envs {
		if failed, ok := env.Payload.(events.ItemFailed); ok {
			if failed.Iteration != 3 || failed.Stage != "draft" || !strings.Contains(failed.Error, "model unavailable") {
				t.Fatalf("unexpected item_failed payload: %+v", failed)
			}
		}
	}
}

func TestBatchConfigurationErrorStaysInIteration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{
		draft: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration == 2 {
				return stage.FromService("draft", services.Wrap(services.ErrConfiguration, "draft", "complete", "api key rejected", nil))
			}
			return nil
		},
	})
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 4})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobCompleted {
		t.Fatalf("expected job_completed, got %s", last.Name)
	}
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateCompleted || job.CompletedUnits != 4 {
		t.Fatalf("unexpected job: %s %d/%d", job.State, job.CompletedUnits, job.TotalUnits)
	}
	if len(job.Result.FailedIterations) != 1 || job.Result.FailedIterations[0] != 2 {
		t.Fatalf("expected iteration 2 recorded as failed, got %v", job.Result.FailedIterations)
	}
}

func TestBatchPersistErrorFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{
		draft: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration == 2 {
				return stage.Persist("post", errors.New("disk full"))
			}
			return nil
		},
	})
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 4})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobFailed {
		t.Fatalf("expected job_failed, got %s", last.Name)
	}
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateFailed || !strings.Contains(job.ErrorMessage, "disk full") {
		t.Fatalf("unexpected job: %s %q", job.State, job.ErrorMessage)
	}
	if job.CompletedUnits != 1 {
		t.Fatalf("expected 1 completed unit, got %d", job.CompletedUnits)
	}
	if countNamed(envs, events.NameItemFailed) != 0 {
		t.Fatal("store failures must not be reported as item failures")
	}
}

func TestAbortPolicyMarksStageError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	failure := stage.Fail("draft", "model unavailable", nil)
	def := batchPipeline(cfg, batchHooks{
		draft: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration == 2 {
				return failure
			}
			return nil
		},
	})
	def.Policy = workflow.AbortOnError
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 3})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobFailed {
		t.Fatalf("expected job_failed, got %s", last.Name)
	}
	if job := mustJob(t, store, res.JobID); job.State != jobs.StateFailed || !strings.Contains(job.ErrorMessage, "model unavailable") {
		t.Fatalf("unexpected job: %s %q", job.State, job.ErrorMessage)
	}
	if !failure.Abort {
		t.Fatal("expected the job-ending stage error to be marked Abort")
	}
}

func TestStopCancelsBeforeNextIteration(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var mgr *workflow.Manager
	var state *batchState
	def := batchPipeline(cfg, batchHooks{
		publish: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration == 2 {
				return mgr.Stop(context.Background(), run.JobID)
			}
			return nil
		},
	})
	begin := def.Begin
	def.Begin = func(ctx context.Context, run *stage.Run, p workflow.ContentParams) (*batchState, error) {
		s, err := begin(ctx, run, p)
		state = s
		return s, err
	}
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 5})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobCancelled {
		t.Fatalf("expected job_cancelled, got %s", last.Name)
	}
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateCancelled {
		t.Fatalf("expected cancelled, got %s", job.State)
	}
	if got := state.publishedCount(); got != 2 {
		t.Fatalf("expected exactly 2 iterations, got %d", got)
	}
	if job.CompletedUnits != 2 {
		t.Fatalf("expected 2 completed units, got %d", job.CompletedUnits)
	}

	// Stopping again is a no-op on the terminal job.
	if err := mgr.Stop(context.Background(), res.JobID); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if again := mustJob(t, store, res.JobID); again.State != jobs.StateCancelled {
		t.Fatalf("terminal state changed to %s", again.State)
	}
}

func TestStopUnknownJob(t *testing.T) {
	mgr, _ := newManager(t)
	err := mgr.Stop(context.Background(), "missing")
	if !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestStopOrphanedJobCancelsDirectly(t *testing.T) {
	mgr, store := newManager(t)
	job := testsupport.NewRunningJob(t, store, jobs.KindContent, 3)
	if err := mgr.Stop(context.Background(), job.ID); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := mustJob(t, store, job.ID); got.State != jobs.StateCancelled {
		t.Fatalf("expected cancelled, got %s", got.State)
	}
}

func TestStopBeforeRegistrationCancelsStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var drafted atomic.Int32
	def := batchPipeline(cfg, batchHooks{
		draft: func(context.Context, *stage.Run, *batchState) error {
			drafted.Add(1)
			return nil
		},
	})
	mgr, store := newManager(t, def)
	restore := workflow.SetJobCreatedForTests(func(jobID string) {
		if err := mgr.Stop(context.Background(), jobID); err != nil {
			t.Errorf("Stop: %v", err)
		}
	})
	defer restore()
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 2})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	if res.State != jobs.StateCancelled || res.EstimatedSeconds != 60 {
		t.Fatalf("unexpected start result %+v", res)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobCancelled {
		t.Fatalf("expected job_cancelled, got %s", last.Name)
	}
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateCancelled || job.ErrorMessage != "" {
		t.Fatalf("unexpected job %s %q", job.State, job.ErrorMessage)
	}
	if active := mgr.ActiveJobs(); len(active) != 0 {
		t.Fatalf("expected no active jobs, got %v", active)
	}
	if drafted.Load() != 0 {
		t.Fatalf("cancelled job ran %d stages", drafted.Load())
	}
}

func TestProgressNeverDecreases(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{
		draft: func(_ context.Context, run *stage.Run, _ *batchState) error {
			if run.Iteration%2 == 0 {
				return errors.New("flaky")
			}
			return nil
		},
	})
	mgr, _ := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{Names: []events.Name{events.NameJobStatus, events.NameJobCompleted}})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 6})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	last := -1.0
	for _, env := range envs {
		status, ok := env.Payload.(events.JobStatus)
		if !ok {
			continue
		}
		if status.Progress < last {
			t.Fatalf("progress went backwards: %v after %v", status.Progress, last)
		}
		last = status.Progress
	}
	if last != 100 {
		t.Fatalf("expected final progress 100, got %v", last)
	}
}

func TestEventsCarryIncreasingSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, _ := newManager(t, batchPipeline(cfg, batchHooks{}))
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 2})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	envs := awaitTerminal(t, sub, res.JobID)
	terminal := 0
	for i, env := range envs {
		if i > 0 && env.Seq <= envs[i-1].Seq {
			t.Fatalf("sequence not increasing at %d", i)
		}
		if env.Name.IsTerminal() {
			terminal++
		}
	}
	if terminal != 1 {
		t.Fatalf("expected exactly one terminal event, got %d", terminal)
	}
	if first := envs[0]; first.Name != events.NameJobStatus {
		t.Fatalf("expected job_status first, got %s", first.Name)
	}
}

func TestStagePanicFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	def := batchPipeline(cfg, batchHooks{
		draft: func(context.Context, *stage.Run, *batchState) error {
			panic("boom")
		},
	})
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 1})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	awaitTerminal(t, sub, res.JobID)
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateFailed || !strings.Contains(job.ErrorMessage, "boom") {
		t.Fatalf("expected failure mentioning panic, got %s %q", job.State, job.ErrorMessage)
	}
}

func TestShutdownFailsRunningJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	entered := make(chan struct{})
	var state *batchState
	def := batchPipeline(cfg, batchHooks{
		draft: func(ctx context.Context, _ *stage.Run, _ *batchState) error {
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		},
	})
	begin := def.Begin
	def.Begin = func(ctx context.Context, run *stage.Run, p workflow.ContentParams) (*batchState, error) {
		s, err := begin(ctx, run, p)
		state = s
		return s, err
	}
	mgr, store := newManager(t, def)
	sub := mgr.Subscribe(events.Filter{})
	defer sub.Close()

	res, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 3})
	if err != nil {
		t.Fatalf("StartContent: %v", err)
	}
	<-entered
	mgr.Shutdown(context.Background())

	envs := awaitTerminal(t, sub, res.JobID)
	if last := envs[len(envs)-1]; last.Name != events.NameJobFailed {
		t.Fatalf("expected job_failed, got %s", last.Name)
	}
	job := mustJob(t, store, res.JobID)
	if job.State != jobs.StateFailed || job.ErrorMessage != workflow.MessageShutdown {
		t.Fatalf("unexpected job after shutdown: %s %q", job.State, job.ErrorMessage)
	}
	if state.ended != jobs.StateFailed {
		t.Fatalf("expected cleanup with failed outcome, got %q", state.ended)
	}
	if _, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 1}); !errors.Is(err, workflow.ErrShuttingDown) {
		t.Fatalf("expected ErrShuttingDown, got %v", err)
	}
}

func TestReconcileFailsInterruptedJobs(t *testing.T) {
	mgr, store := newManager(t)
	sub := mgr.Subscribe(events.Filter{Names: []events.Name{events.NameJobFailed}})
	defer sub.Close()

	stale := testsupport.NewRunningJob(t, store, jobs.KindVideo, 3)
	ids, err := mgr.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(ids) != 1 || ids[0] != stale.ID {
		t.Fatalf("unexpected reconciled ids: %v", ids)
	}
	job := mustJob(t, store, stale.ID)
	if job.State != jobs.StateFailed || job.ErrorMessage != workflow.MessageRestarted {
		t.Fatalf("unexpected job: %s %q", job.State, job.ErrorMessage)
	}
	select {
	case env := <-sub.C:
		if env.JobID != stale.ID {
			t.Fatalf("unexpected event job %s", env.JobID)
		}
	case <-time.After(time.Second):
		t.Fatal("expected job_failed event")
	}
}

func TestStartRejectsInvalidParams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, _ := newManager(t, batchPipeline(cfg, batchHooks{}))

	_, err := mgr.StartContent(context.Background(), workflow.ContentParams{Count: 11})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = mgr.Start(context.Background(), jobs.KindContent, "not params")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for wrong type, got %v", err)
	}
	_, err = mgr.StartVideo(context.Background(), workflow.VideoParams{Prompt: "x", SceneCount: 1, TotalDuration: 20})
	if !errors.Is(err, workflow.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestStatusViews(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mgr, store := newManager(t, batchPipeline(cfg, batchHooks{}))

	view, err := mgr.Status(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Job != nil || view.IsRunning {
		t.Fatalf("expected empty view, got %+v", view)
	}

	job := testsupport.NewRunningJob(t, store, jobs.KindContent, 2)
	view, err = mgr.Status(context.Background(), "", jobs.KindContent)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if view.Job == nil || view.Job.ID != job.ID || !view.IsRunning || view.Owned {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := mgr.Status(context.Background(), "missing", ""); !errors.Is(err, jobs.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	agents, err := mgr.Agents(context.Background())
	if err != nil {
		t.Fatalf("Agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(agents))
	}

	health := mgr.Health(context.Background())
	if len(health) != 1 || !health[0].Ready || len(health[0].Stages) != 2 {
		t.Fatalf("unexpected health: %+v", health)
	}
}
