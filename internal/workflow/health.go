package workflow

import (
	"context"
	"sort"

	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
)

// PipelineHealth summarizes the readiness of one pipeline's stages.
type PipelineHealth struct {
	Kind   jobs.Kind      `json:"kind"`
	Ready  bool           `json:"ready"`
	Stages []stage.Health `json:"stages"`
}

// Health checks every registered pipeline, ordered by kind.
func (m *Manager) Health(ctx context.Context) []PipelineHealth {
	m.mu.RLock()
	pipelines := make([]Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		pipelines = append(pipelines, p)
	}
	m.mu.RUnlock()
	sort.Slice(pipelines, func(i, j int) bool {
		return pipelines[i].PipelineKind() < pipelines[j].PipelineKind()
	})

	out := make([]PipelineHealth, 0, len(pipelines))
	for _, p := range pipelines {
		stages := p.HealthCheck(ctx)
		ready := true
		for _, h := range stages {
			if !h.Ready {
				ready = false
			}
		}
		out = append(out, PipelineHealth{Kind: p.PipelineKind(), Ready: ready, Stages: stages})
	}
	return out
}
