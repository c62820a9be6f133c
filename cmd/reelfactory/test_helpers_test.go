package main

import (
	"bytes"
	"context"
	"fmt"
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
	"reelfactory/internal/video"
	"reelfactory/internal/workflow"
)

type waitState struct{ count int }

// waitStage blocks until its job is cancelled.
type waitStage struct{}

func (waitStage) Name() string  { return "wait" }
func (waitStage) Agent() string { return "Waiter" }

func (waitStage) Execute(ctx context.Context, _ *stage.Run, _ *waitState) error {
	<-ctx.Done()
	return ctx.Err()
}

func (waitStage) HealthCheck(context.Context) stage.Health { return stage.Healthy("wait") }

func waitPipeline(cfg *config.Config) *workflow.Definition[workflow.ContentParams, waitState] {
	return &workflow.Definition[workflow.ContentParams, waitState]{
		Kind:   jobs.KindContent,
		Policy: workflow.ContinuePerIteration,
		Agents: []workflow.AgentInfo{{Name: "Waiter", Role: "waits for cancellation"}},
		Phases: []workflow.Phase[waitState]{{
			Name:    "post",
			Weight:  100,
			Counted: true,
			Repeat:  func(s *waitState) int { return s.count },
			Steps:   []workflow.Step[waitState]{{Stage: waitStage{}, Label: "Waiting"}},
		}},
		Validate: workflow.ContentValidator(cfg),
		Units:    func(p workflow.ContentParams) int { return p.Count },
		Estimate: func(p workflow.ContentParams) int { return p.Count * 30 },
		Begin: func(_ context.Context, _ *stage.Run, p workflow.ContentParams) (*waitState, error) {
			return &waitState{count: p.Count}, nil
		},
		Result: func(*waitState) jobs.JobResult { return jobs.JobResult{} },
	}
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobs.Store
	daemon     *daemon.Daemon
	client     *ipc.Client
	socketPath string
	configPath string
}

func setupCLITestEnv(t *testing.T, adjust ...func(*config.Config)) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	for _, fn := range adjust {
		fn(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, events.NewHub(64), logger, waitPipeline(cfg))
	mgr.SetPrompter(video.NewPrompter(nil, cfg.Video.MaxSceneCount, logger))
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

	srv, err := ipc.NewServer(ctx, cfg.Paths.SocketPath, d, logger, nil)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping CLI test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)

	client, err := ipc.Dial(cfg.Paths.SocketPath)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		daemon:     d,
		client:     client,
		socketPath: cfg.Paths.SocketPath,
		configPath: configPath,
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if socket != "" {
		flags = append(flags, "--socket", socket)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
media_dir = %q
socket_path = %q

[llm]
api_key = %q

[gemini]
api_key = %q

[publisher]
token = %q

[events]
websocket_bind = %q
token = %q
`,
		cfg.Paths.DataDir,
		cfg.Paths.LogDir,
		cfg.Paths.MediaDir,
		cfg.Paths.SocketPath,
		cfg.LLM.APIKey,
		cfg.Gemini.APIKey,
		cfg.Publisher.Token,
		cfg.Events.WebsocketBind,
		cfg.Events.Token,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func waitFor(t *testing.T, duration time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(duration)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", duration)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func startContent(count int) ipc.StartRequest {
	return ipc.StartRequest{Kind: string(jobs.KindContent), Count: count}
}
