package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reelfactory/internal/config"
	"reelfactory/internal/eventstream"
	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/metrics"
	"reelfactory/internal/notifications"
	"reelfactory/internal/preflight"
	"reelfactory/internal/schedule"
	"reelfactory/internal/workflow"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *jobs.Store
	workflow *workflow.Manager
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	events    *eventstream.Server
	metricsSv *eventstream.Server
	collector *metrics.Collector
	scheduler *schedule.Scheduler

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool                      `json:"running"`
	ActiveJobs    []string                  `json:"active_jobs"`
	Pipelines     []workflow.PipelineHealth `json:"pipelines"`
	Preflight     []preflight.Result        `json:"preflight"`
	Subscribers   int                       `json:"subscribers"`
	DroppedEvents uint64                    `json:"dropped_events"`
	LastError     string                    `json:"last_error,omitempty"`
	EventsAddr    string                    `json:"events_addr,omitempty"`
	MetricsAddr   string                    `json:"metrics_addr,omitempty"`
	DatabasePath  string                    `json:"database_path"`
	LockFilePath  string                    `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		notifier: notifications.NewService(cfg),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Workflow exposes the manager for the IPC layer.
func (d *Daemon) Workflow() *workflow.Manager {
	return d.workflow
}

// Start acquires the daemon lock, fails jobs orphaned by a previous process,
// then starts the event consumers and network surfaces.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reelfactory daemon instance is already running")
	}

	if failed := preflight.Failed(preflight.RunLocal(d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		return fmt.Errorf("preflight: %s: %s", failed[0].Name, failed[0].Detail)
	}

	if _, err := d.workflow.Reconcile(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reconcile interrupted jobs: %w", err)
	}
	if err := d.workflow.EnsureAgents(ctx); err != nil {
		d.logger.Warn("agent registry not seeded",
			logging.Error(err),
			logging.String(logging.FieldEventType, "agents_seed_failed"),
			logging.String(logging.FieldImpact, "agent listing may be empty until the first job runs"),
		)
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.startConsumers(); err != nil {
		d.cancel()
		d.stopSurfaces()
		_ = d.lock.Unlock()
		d.ctx, d.cancel = nil, nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("reelfactory daemon started",
		logging.String("lock", d.lockPath),
		logging.String("events", d.events.Addr()),
		logging.String("metrics", d.metricsSv.Addr()),
	)
	return nil
}

func (d *Daemon) startConsumers() error {
	hub := d.workflow.Hub()

	subscriber := notifications.NewSubscriber(d.cfg, d.notifier, d.logger)
	d.spawn(func(ctx context.Context) {
		subscriber.Run(ctx, hub.Subscribe(notifications.Filter()))
	})

	d.collector = metrics.New(hub)
	d.spawn(func(ctx context.Context) {
		d.collector.Run(ctx, hub.Subscribe(events.Filter{}))
	})

	d.events = eventstream.NewServer(d.cfg.Events.WebsocketBind, d.logger)
	d.events.MountEvents(d.workflow, d.cfg.Events.Token)

	metricsBind := strings.TrimSpace(d.cfg.Events.MetricsBind)
	switch {
	case metricsBind == "":
	case d.events != nil && metricsBind == strings.TrimSpace(d.cfg.Events.WebsocketBind):
		d.events.Handle("/metrics", d.collector.Handler())
	default:
		d.metricsSv = eventstream.NewServer(metricsBind, d.logger)
		d.metricsSv.Handle("/metrics", d.collector.Handler())
	}
	if err := d.events.Start(d.ctx); err != nil {
		return fmt.Errorf("start event relay: %w", err)
	}
	if err := d.metricsSv.Start(d.ctx); err != nil {
		return fmt.Errorf("start metrics listener: %w", err)
	}

	scheduler, err := schedule.New(d.cfg, d.workflow, d.logger)
	if err != nil {
		return err
	}
	if err := scheduler.Start(d.ctx); err != nil {
		return fmt.Errorf("start schedule: %w", err)
	}
	d.scheduler = scheduler
	return nil
}

func (d *Daemon) spawn(fn func(ctx context.Context)) {
	ctx := d.ctx
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(ctx)
	}()
}

func (d *Daemon) stopSurfaces() {
	d.scheduler.Stop()
	d.events.Stop()
	d.metricsSv.Stop()
}

// Stop stops the schedule, interrupts running jobs and releases the daemon
// lock. Jobs still running are failed with the shutdown message.
func (d *Daemon) Stop(ctx context.Context) {
	if !d.running.Load() {
		return
	}

	d.scheduler.Stop()
	d.workflow.Shutdown(ctx)
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	d.stopSurfaces()
	d.workflow.Hub().Close()

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "lock_release_failed"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reelfactory daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop(context.Background())
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	hub := d.workflow.Hub()
	status := Status{
		Running:       d.running.Load(),
		ActiveJobs:    d.workflow.ActiveJobs(),
		Pipelines:     d.workflow.Health(ctx),
		Preflight:     preflight.RunLocal(d.cfg),
		Subscribers:   hub.Subscribers(),
		DroppedEvents: hub.Dropped(),
		EventsAddr:    d.events.Addr(),
		MetricsAddr:   d.metricsSv.Addr(),
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
	}
	if status.MetricsAddr == "" && d.collector != nil && strings.TrimSpace(d.cfg.Events.MetricsBind) != "" {
		status.MetricsAddr = status.EventsAddr
	}
	if err := d.workflow.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}
