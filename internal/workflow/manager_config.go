package workflow

import (
	"context"
	"fmt"

	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
)

// Register adds or replaces the pipeline for its kind.
func (m *Manager) Register(p Pipeline) {
	if p == nil {
		return
	}
	m.mu.Lock()
	m.pipelines[p.PipelineKind()] = p
	m.agentsSynced = false
	m.mu.Unlock()
}

func (m *Manager) pipeline(kind jobs.Kind) (Pipeline, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pipelines[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return p, nil
}

// EnsureAgents registers every pipeline agent in the store. It runs once per
// set of registered pipelines.
func (m *Manager) EnsureAgents(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.agentsSynced {
		return nil
	}
	for _, p := range m.pipelines {
		for _, agent := range p.AgentList() {
			if err := m.store.UpsertAgent(ctx, agent.Name, agent.Role); err != nil {
				return err
			}
		}
	}
	m.agentsSynced = true
	m.logger.Debug("agents registered", logging.Int("pipelines", len(m.pipelines)))
	return nil
}
