// Package metrics exposes orchestrator activity as Prometheus collectors fed
// from the event hub.
package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
)

// Collector owns a registry with the orchestrator metrics.
type Collector struct {
	registry *prometheus.Registry

	jobsStarted   *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobsRunning   *prometheus.GaugeVec
	jobDuration   *prometheus.HistogramVec
	itemsFailed   *prometheus.CounterVec
	postsCreated  prometheus.Counter
	scenesCreated prometheus.Counter

	mu      sync.Mutex
	started map[string]jobStart
	now     func() time.Time
}

type jobStart struct {
	kind jobs.Kind
	at   time.Time
}

// New builds a Collector. hub may be nil; when set its drop count is exported.
func New(hub *events.Hub) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reelfactory_jobs_started_total",
				Help: "Jobs that reached running, per kind.",
			},
			[]string{"kind"},
		),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reelfactory_jobs_finished_total",
				Help: "Jobs that reached a terminal state, per kind and state.",
			},
			[]string{"kind", "state"},
		),
		jobsRunning: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reelfactory_jobs_running",
				Help: "Jobs currently running, per kind.",
			},
			[]string{"kind"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reelfactory_job_duration_seconds",
				Help:    "Wall time from job start to terminal state.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 2400},
			},
			[]string{"kind", "state"},
		),
		itemsFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reelfactory_items_failed_total",
				Help: "Content iterations that failed and were skipped, per stage.",
			},
			[]string{"stage"},
		),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelfactory_posts_published_total",
			Help: "Posts published to the external platform.",
		}),
		scenesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reelfactory_scenes_completed_total",
			Help: "Video scenes rendered and stored.",
		}),
		started: make(map[string]jobStart),
		now:     time.Now,
	}
	c.registry.MustRegister(
		c.jobsStarted, c.jobsFinished, c.jobsRunning, c.jobDuration,
		c.itemsFailed, c.postsCreated, c.scenesCreated,
	)
	if hub != nil {
		c.registry.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Name: "reelfactory_events_dropped_total",
				Help: "Events dropped because a subscriber was full.",
			}, func() float64 { return float64(hub.Dropped()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "reelfactory_event_subscribers",
				Help: "Live event subscriptions.",
			}, func() float64 { return float64(hub.Subscribers()) }),
		)
	}
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Run observes sub until ctx ends or the subscription closes.
func (c *Collector) Run(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			c.Observe(env)
		}
	}
}

// Observe updates the collectors for one event. A job counts as started on
// the first running job_status seen for it.
func (c *Collector) Observe(env events.Envelope) {
	switch p := env.Payload.(type) {
	case events.JobStatus:
		if p.State != jobs.StateRunning {
			return
		}
		c.mu.Lock()
		_, seen := c.started[p.JobID]
		if !seen {
			c.started[p.JobID] = jobStart{kind: p.Kind, at: c.now()}
		}
		c.mu.Unlock()
		if !seen {
			c.jobsStarted.WithLabelValues(string(p.Kind)).Inc()
			c.jobsRunning.WithLabelValues(string(p.Kind)).Inc()
		}
	case events.PostCreated:
		c.postsCreated.Inc()
	case events.SceneCompleted:
		c.scenesCreated.Inc()
	case events.ItemFailed:
		c.itemsFailed.WithLabelValues(p.Stage).Inc()
	case events.JobCompleted:
		c.finish(p.JobID, p.Kind, jobs.StateCompleted)
	case events.JobFailed:
		c.finish(p.JobID, p.Kind, jobs.StateFailed)
	case events.JobCancelled:
		c.finish(p.JobID, p.Kind, jobs.StateCancelled)
	}
}

func (c *Collector) finish(jobID string, kind jobs.Kind, state jobs.State) {
	c.mu.Lock()
	start, seen := c.started[jobID]
	delete(c.started, jobID)
	c.mu.Unlock()

	c.jobsFinished.WithLabelValues(string(kind), string(state)).Inc()
	if !seen {
		return
	}
	c.jobsRunning.WithLabelValues(string(start.kind)).Dec()
	c.jobDuration.WithLabelValues(string(kind), string(state)).Observe(c.now().Sub(start.at).Seconds())
}
