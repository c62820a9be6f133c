package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
)

// Manager coordinates job execution for every registered pipeline.
type Manager struct {
	cfg       *config.Config
	store     *jobs.Store
	hub       *events.Hub
	logger    *slog.Logger
	heartbeat *HeartbeatMonitor

	pipelines map[jobs.Kind]Pipeline
	prompter  Prompter

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu           sync.RWMutex
	active       map[string]*execution
	closing      bool
	agentsSynced bool
	lastErr      error

	now func() time.Time
}

// NewManager constructs a workflow manager. Pipelines may also be added later
// with Register.
func NewManager(cfg *config.Config, store *jobs.Store, hub *events.Hub, logger *slog.Logger, pipelines ...Pipeline) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if hub == nil {
		hub = events.NewHub(cfg.Workflow.SubscriberBuffer)
	}
	logger = logging.NewComponentLogger(logger, "workflow")
	baseCtx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		store:     store,
		hub:       hub,
		logger:    logger,
		heartbeat: NewHeartbeatMonitor(store, logger, cfg.HeartbeatInterval()),
		pipelines: make(map[jobs.Kind]Pipeline),
		baseCtx:   baseCtx,
		cancel:    cancel,
		active:    make(map[string]*execution),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, p := range pipelines {
		m.Register(p)
	}
	return m
}

// Hub returns the event hub the manager publishes into.
func (m *Manager) Hub() *events.Hub {
	return m.hub
}

// Subscribe opens an event subscription. Callers must Close it.
func (m *Manager) Subscribe(filter events.Filter) *events.Subscription {
	return m.hub.Subscribe(filter)
}

// ActiveJobs returns the IDs of jobs running in this process.
func (m *Manager) ActiveJobs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	return ids
}

func (m *Manager) isActive(jobID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.active[jobID]
	return ok
}

func (m *Manager) isClosing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closing
}

func (m *Manager) unregister(jobID string) {
	m.mu.Lock()
	delete(m.active, jobID)
	m.mu.Unlock()
}

// LastError returns the most recent job failure seen by this manager.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
