package daemon_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"reelfactory/internal/config"
	"reelfactory/internal/daemon"
	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

func newDaemon(t *testing.T, cfg *config.Config) (*daemon.Daemon, *jobs.Store) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, events.NewHub(16), logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != cfg.LockPath() {
		t.Fatalf("lock path = %q, want %q", status.LockFilePath, cfg.LockPath())
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop(ctx)
	if d.Status(ctx).Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, _ := newDaemon(t, cfg)
	second, _ := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop(ctx)

	err := second.Start(ctx)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestDaemonStartFailsInterruptedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, store := newDaemon(t, cfg)
	orphan := testsupport.NewRunningJob(t, store, jobs.KindContent, 3)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop(ctx)

	job, err := store.GetJob(ctx, orphan.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.State != jobs.StateFailed || job.ErrorMessage != workflow.MessageRestarted {
		t.Fatalf("orphan job = %s %q, want failed %q", job.State, job.ErrorMessage, workflow.MessageRestarted)
	}
}

func TestDaemonSharesMetricsWithEventBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Events.WebsocketBind = "127.0.0.1:0"
	cfg.Events.MetricsBind = "127.0.0.1:0"
	d, _ := newDaemon(t, cfg)

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop(ctx)

	status := d.Status(ctx)
	if status.EventsAddr == "" || status.MetricsAddr != status.EventsAddr {
		t.Fatalf("expected metrics on the event listener, got events=%q metrics=%q", status.EventsAddr, status.MetricsAddr)
	}

	resp, err := http.Get("http://" + status.MetricsAddr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "reelfactory_") {
		t.Fatalf("unexpected metrics response %d: %s", resp.StatusCode, body)
	}
}

func TestDaemonStartFailsPreflight(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, _ := newDaemon(t, cfg)
	cfg.Paths.MediaDir = cfg.Paths.MediaDir + "-missing"

	err := d.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "Media directory") {
		t.Fatalf("expected preflight failure, got %v", err)
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should not be running")
	}
}

func TestTestNotificationWithoutTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Notifications.NtfyTopic = ""
	d, _ := newDaemon(t, cfg)

	ok, msg, err := d.TestNotification(context.Background())
	if ok || err != nil || msg != "ntfy topic not configured" {
		t.Fatalf("unexpected result ok=%v msg=%q err=%v", ok, msg, err)
	}
}
