package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/daemon"
	"reelfactory/internal/events"
	"reelfactory/internal/ipc"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

type holdState struct{ count int }

type holdStage struct{}

func (holdStage) Name() string  { return "hold" }
func (holdStage) Agent() string { return "Holder" }

func (holdStage) Execute(ctx context.Context, _ *stage.Run, _ *holdState) error {
	<-ctx.Done()
	return ctx.Err()
}

func (holdStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("hold") }

func holdPipeline(cfg *config.Config) *workflow.Definition[workflow.ContentParams, holdState] {
	return &workflow.Definition[workflow.ContentParams, holdState]{
		Kind:   jobs.KindContent,
		Policy: workflow.ContinuePerIteration,
		Agents: []workflow.AgentInfo{{Name: "Holder", Role: "waits for cancellation"}},
		Phases: []workflow.Phase[holdState]{{
			Name:    "post",
			Weight:  100,
			Counted: true,
			Repeat:  func(s *holdState) int { return s.count },
			Steps:   []workflow.Step[holdState]{{Stage: holdStage{}, Label: "Holding"}},
		}},
		Validate: workflow.ContentValidator(cfg),
		Units:    func(p workflow.ContentParams) int { return p.Count },
		Estimate: func(p workflow.ContentParams) int { return p.Count * 30 },
		Begin: func(_ context.Context, _ *stage.Run, p workflow.ContentParams) (*holdState, error) {
			return &holdState{count: p.Count}, nil
		},
		Result: func(*holdState) jobs.JobResult { return jobs.JobResult{} },
	}
}

type cannedPrompter struct{}

func (cannedPrompter) Generate(_ context.Context, opts workflow.PromptOptions) (workflow.PromptIdea, error) {
	return workflow.PromptIdea{Prompt: "A slow pan over " + opts.Topic, SuggestedScenes: 3, SuggestedDuration: 24, Mood: opts.Mood}, nil
}

func (p cannedPrompter) Suggestions(ctx context.Context, opts workflow.PromptOptions, count int) ([]workflow.PromptIdea, error) {
	ideas := make([]workflow.PromptIdea, count)
	for i := range ideas {
		ideas[i], _ = p.Generate(ctx, opts)
	}
	return ideas, nil
}

func (cannedPrompter) Niches() []string { return []string{"Travel", "Foodie"} }

func (cannedPrompter) NicheInfo(niche string) (workflow.NicheTemplate, bool) {
	if niche != "Travel" {
		return workflow.NicheTemplate{}, false
	}
	return workflow.NicheTemplate{ContentTypes: []string{"journey montage"}}, true
}

func startServer(t *testing.T, shutdown func()) (*ipc.Client, *config.Config) {
	t.Helper()
	client, cfg, _ := startServerWithStore(t, shutdown)
	return client, cfg
}

func startServerWithStore(t *testing.T, shutdown func()) (*ipc.Client, *config.Config, *jobs.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, events.NewHub(64), logger, holdPipeline(cfg))
	mgr.SetPrompter(cannedPrompter{})
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() { d.Stop(context.Background()) })

	socket := filepath.Join(cfg.Paths.DataDir, "test.sock")
	srv, err := ipc.NewServer(ctx, socket, d, logger, shutdown)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, cfg, store
}

func TestIPCJobLifecycle(t *testing.T) {
	client, _ := startServer(t, nil)

	started, err := client.Start(ipc.StartRequest{Kind: "content", Count: 2})
	if err != nil {
		t.Fatalf("Start RPC failed: %v", err)
	}
	if started.JobID == "" || started.Kind != jobs.KindContent || started.TotalUnits != 2 || started.EstimatedSeconds != 60 {
		t.Fatalf("unexpected start response %+v", started)
	}

	status, err := client.Status(started.JobID, "")
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.IsRunning || status.Job == nil || status.Job.ID != started.JobID {
		t.Fatalf("expected running job snapshot, got %+v", status)
	}

	latest, err := client.Status("", "content")
	if err != nil {
		t.Fatalf("Status by kind failed: %v", err)
	}
	if latest.Job == nil || latest.Job.ID != started.JobID {
		t.Fatalf("expected latest running content job, got %+v", latest.Job)
	}

	stopped, err := client.Stop(started.JobID)
	if err != nil || !stopped.Stopped {
		t.Fatalf("Stop RPC: resp=%+v err=%v", stopped, err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		status, err = client.Status(started.JobID, "")
		if err != nil {
			t.Fatalf("Status RPC failed: %v", err)
		}
		if status.Job.State == jobs.StateCancelled {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not cancel, state=%s", status.Job.State)
		}
		time.Sleep(20 * time.Millisecond)
	}

	list, err := client.Jobs("content", 0, 0)
	if err != nil {
		t.Fatalf("Jobs RPC failed: %v", err)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != started.JobID {
		t.Fatalf("unexpected jobs %+v", list.Jobs)
	}
}

func TestIPCRejectsBadRequests(t *testing.T) {
	client, _ := startServer(t, nil)

	if _, err := client.Start(ipc.StartRequest{Kind: "podcast"}); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
	if _, err := client.Start(ipc.StartRequest{Kind: "content", Count: 50}); err == nil {
		t.Fatal("expected count above the maximum to fail")
	}
	if _, err := client.Start(ipc.StartRequest{Kind: "video", Prompt: "a noodle shop"}); err == nil || !strings.Contains(err.Error(), "no pipeline") {
		t.Fatalf("expected unregistered kind error, got %v", err)
	}
	if _, err := client.Stop(""); err == nil {
		t.Fatal("expected empty job id to fail")
	}
	if _, err := client.Status("missing", ""); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
	if _, err := client.Shutdown(); err == nil {
		t.Fatal("expected shutdown without handler to fail")
	}
}

func TestIPCListings(t *testing.T) {
	client, cfg := startServer(t, nil)

	posts, err := client.ListPosts(0, -3)
	if err != nil {
		t.Fatalf("ListPosts RPC failed: %v", err)
	}
	if posts.Total != 0 || posts.Limit != 20 || posts.Offset != 0 {
		t.Fatalf("unexpected posts page %+v", posts)
	}

	videos, err := client.ListVideos(500, 0)
	if err != nil {
		t.Fatalf("ListVideos RPC failed: %v", err)
	}
	if videos.Limit != 100 {
		t.Fatalf("expected limit clamp to 100, got %d", videos.Limit)
	}

	agents, err := client.Agents()
	if err != nil {
		t.Fatalf("Agents RPC failed: %v", err)
	}
	if len(agents.Agents) != 1 || agents.Agents[0].Name != "Holder" {
		t.Fatalf("unexpected agents %+v", agents.Agents)
	}

	status, err := client.Daemon()
	if err != nil {
		t.Fatalf("Daemon RPC failed: %v", err)
	}
	if !status.Running || status.PID != os.Getpid() || status.LockFilePath != cfg.LockPath() {
		t.Fatalf("unexpected daemon status %+v", status)
	}
	if len(status.Pipelines) != 1 || !status.Pipelines[0].Ready {
		t.Fatalf("unexpected pipeline health %+v", status.Pipelines)
	}
}

func TestIPCEntityLookups(t *testing.T) {
	client, _, store := startServerWithStore(t, nil)
	ctx := context.Background()
	job := testsupport.NewRunningJob(t, store, jobs.KindContent, 1)
	post, err := store.CreatePost(ctx, &jobs.Post{JobID: job.ID, Iteration: 1, Caption: "Slurp", Status: jobs.PostPublished})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	videoJob := testsupport.NewRunningJob(t, store, jobs.KindVideo, 2)
	video, err := store.CreateVideo(ctx, &jobs.Video{JobID: videoJob.ID, Prompt: "harbour at dawn"})
	if err != nil {
		t.Fatalf("CreateVideo: %v", err)
	}

	gotPost, err := client.GetPost(post.ID)
	if err != nil || gotPost.Post == nil || gotPost.Post.Caption != "Slurp" {
		t.Fatalf("GetPost RPC: %+v %v", gotPost, err)
	}
	gotVideo, err := client.GetVideo(video.ID)
	if err != nil || gotVideo.Video == nil || gotVideo.Video.Prompt != "harbour at dawn" {
		t.Fatalf("GetVideo RPC: %+v %v", gotVideo, err)
	}
	if _, err := client.GetPost("missing"); err == nil || !strings.Contains(err.Error(), "post not found") {
		t.Fatalf("expected post not found, got %v", err)
	}
	if _, err := client.GetVideo(" "); err == nil {
		t.Fatal("expected empty video id to fail")
	}
}

func TestIPCPrompter(t *testing.T) {
	client, _ := startServer(t, nil)

	idea, err := client.Prompt(workflow.PromptOptions{Niche: "Travel", Topic: "Lisbon trams", Mood: "calm"})
	if err != nil {
		t.Fatalf("Prompt RPC failed: %v", err)
	}
	if idea.Prompt != "A slow pan over Lisbon trams" || idea.Mood != "calm" {
		t.Fatalf("unexpected idea %+v", idea)
	}
	if _, err := client.Prompt(workflow.PromptOptions{Niche: "Travel", Mood: "furious"}); err == nil {
		t.Fatal("expected invalid mood to fail")
	}

	suggestions, err := client.PromptSuggestions(workflow.PromptOptions{Niche: "Travel"}, 2)
	if err != nil || len(suggestions.Suggestions) != 2 {
		t.Fatalf("PromptSuggestions RPC: %+v %v", suggestions, err)
	}

	niches, err := client.Niches()
	if err != nil || len(niches.Niches) != 2 {
		t.Fatalf("Niches RPC: %+v %v", niches, err)
	}
	info, err := client.NicheInfo("Travel")
	if err != nil || info.ContentTypes[0] != "journey montage" {
		t.Fatalf("NicheInfo RPC: %+v %v", info, err)
	}
	if _, err := client.NicheInfo("Pottery"); err == nil || !strings.Contains(err.Error(), "Niche not found") {
		t.Fatalf("expected niche not found, got %v", err)
	}
}

func TestIPCShutdown(t *testing.T) {
	called := make(chan struct{})
	client, _ := startServer(t, func() { close(called) })

	resp, err := client.Shutdown()
	if err != nil || !resp.Accepted {
		t.Fatalf("Shutdown RPC: resp=%+v err=%v", resp, err)
	}
	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown handler not invoked")
	}
}
