package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

func TestStartStopAndStatusCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "start", "content", "--count", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("start content: %v", err)
	}
	var started workflow.StartResult
	if err := json.Unmarshal([]byte(out), &started); err != nil {
		t.Fatalf("decode start output %q: %v", out, err)
	}
	if started.JobID == "" || started.TotalUnits != 2 || started.EstimatedSeconds != 60 {
		t.Fatalf("unexpected start result %+v", started)
	}

	out, _, err = runCLI(t, []string{"status", started.JobID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status job: %v", err)
	}
	requireContains(t, out, started.JobID)
	requireContains(t, out, "running")

	out, _, err = runCLI(t, []string{"status", "--kind", "content"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status by kind: %v", err)
	}
	requireContains(t, out, started.JobID)

	out, _, err = runCLI(t, []string{"stop", started.JobID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "stopping")

	waitFor(t, 5*time.Second, func() bool {
		job, err := env.store.GetJob(t.Context(), started.JobID)
		return err == nil && job.State == jobs.StateCancelled
	})

	out, _, err = runCLI(t, []string{"jobs", "--kind", "content"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, started.JobID[:8])
	requireContains(t, out, "cancelled")
}

func TestStartRejectsInvalidInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"start", "content", "--count", "50"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected count above the maximum to fail")
	}
	if _, _, err := runCLI(t, []string{"start", "video"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "--prompt") {
		t.Fatalf("expected missing prompt error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"status", "missing-job"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected unknown job to fail")
	}
}

func TestListingCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"posts"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("posts: %v", err)
	}
	requireContains(t, out, "No posts")

	out, _, err = runCLI(t, []string{"videos", "--limit", "500"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("videos: %v", err)
	}
	requireContains(t, out, "No videos")

	out, _, err = runCLI(t, []string{"agents"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	requireContains(t, out, "Waiter")
	requireContains(t, out, "idle")

	out, _, err = runCLI(t, []string{"--json", "posts", "--limit", "5", "--offset=-1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("posts json: %v", err)
	}
	var page struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	}
	if err := json.Unmarshal([]byte(out), &page); err != nil {
		t.Fatalf("decode posts json: %v", err)
	}
	if page.Limit != 5 || page.Offset != 0 {
		t.Fatalf("unexpected normalized page %+v", page)
	}
}

func TestDaemonStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running (pid")
	requireContains(t, out, "Data directory")
	requireContains(t, out, "content/wait")
	requireContains(t, out, "No jobs yet")
}

func TestDaemonStatusOffline(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	out, _, err := runCLI(t, []string{"status"}, "", configPath)
	if err != nil {
		t.Fatalf("status offline: %v", err)
	}
	requireContains(t, out, "not running")
	requireContains(t, out, "Log directory")

	if _, _, err := runCLI(t, []string{"posts"}, "", configPath); err == nil || !strings.Contains(err.Error(), "reelfactory daemon start") {
		t.Fatalf("expected daemon hint, got %v", err)
	}
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}

func TestWatchStreamsUntilTerminal(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.Events.WebsocketBind = "127.0.0.1:0"
	})

	status, err := env.client.Daemon()
	if err != nil {
		t.Fatalf("Daemon RPC: %v", err)
	}
	if status.EventsAddr == "" {
		t.Fatal("expected events listener address")
	}
	baseline := status.Subscribers

	started, err := env.client.Start(startContent(1))
	if err != nil {
		t.Fatalf("Start RPC: %v", err)
	}

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, _, err := runCLI(t, []string{"watch", "--url", "ws://" + status.EventsAddr + "/events", started.JobID}, env.socketPath, env.configPath)
		done <- result{out: out, err: err}
	}()

	waitFor(t, 5*time.Second, func() bool {
		s, err := env.client.Daemon()
		return err == nil && s.Subscribers > baseline
	})
	if _, err := env.client.Stop(started.JobID); err != nil {
		t.Fatalf("Stop RPC: %v", err)
	}

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("watch: %v", res.err)
		}
		requireContains(t, res.out, "job_cancelled")
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not return after the job was cancelled")
	}
}

func TestWatchURL(t *testing.T) {
	cfg := config.Default()
	if _, err := watchURL(&cfg, "", ""); err == nil {
		t.Fatal("expected error when the event stream is disabled")
	}
	cfg.Events.WebsocketBind = "0.0.0.0:7480"
	got, err := watchURL(&cfg, "", "job-1")
	if err != nil {
		t.Fatalf("watchURL: %v", err)
	}
	if got != "ws://127.0.0.1:7480/events?job=job-1" {
		t.Fatalf("unexpected url %q", got)
	}
	got, err = watchURL(&cfg, "ws://example.test/events", "")
	if err != nil || got != "ws://example.test/events" {
		t.Fatalf("override ignored: %q %v", got, err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	target := filepath.Join(dir, "reelfactory.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "REELFACTORY_LLM_API_KEY")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config written: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, "", target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, target)
}

func TestEntityCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()
	job := testsupport.NewRunningJob(t, env.store, jobs.KindContent, 1)
	post, err := env.store.CreatePost(ctx, &jobs.Post{JobID: job.ID, Iteration: 1, Status: jobs.PostPublished, Caption: "Fresh take", ExternalPostID: "ext-9"})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	out, _, err := runCLI(t, []string{"post", post.ID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	requireContains(t, out, "Post "+post.ID)
	requireContains(t, out, "ext-9")

	if _, _, err := runCLI(t, []string{"post", "missing"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "post not found") {
		t.Fatalf("expected post not found, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"video", "missing"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "video not found") {
		t.Fatalf("expected video not found, got %v", err)
	}
}

func TestPromptNicheCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"prompt", "niches"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("prompt niches: %v", err)
	}
	requireContains(t, out, "Tech Reviewer")
	requireContains(t, out, "Gaming")

	out, _, err = runCLI(t, []string{"prompt", "niches", "travel"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("prompt niches travel: %v", err)
	}
	requireContains(t, out, "cinematic")
	requireContains(t, out, "sweeping landscapes")

	if _, _, err := runCLI(t, []string{"prompt", "niches", "Pottery"}, env.socketPath, env.configPath); err == nil || !strings.Contains(err.Error(), "Niche not found") {
		t.Fatalf("expected unknown niche error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"prompt", "generate"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected missing --niche error")
	}
}
