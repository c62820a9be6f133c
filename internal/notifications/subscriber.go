package notifications

import (
	"context"
	"log/slog"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/events"
	"reelfactory/internal/logging"
)

// Subscriber relays terminal job events to a Service.
type Subscriber struct {
	svc       Service
	logger    *slog.Logger
	completed bool
	failed    bool
	timeout   time.Duration
}

// NewSubscriber honours the job_completed and job_failed toggles in cfg.
func NewSubscriber(cfg *config.Config, svc Service, logger *slog.Logger) *Subscriber {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Subscriber{
		svc:       svc,
		logger:    logging.NewComponentLogger(logger, "notifications"),
		completed: cfg.Notifications.JobCompleted,
		failed:    cfg.Notifications.JobFailed,
		timeout:   timeout,
	}
}

// Run consumes sub until ctx ends or the subscription closes.
func (s *Subscriber) Run(ctx context.Context, sub *events.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			s.handle(ctx, env)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, env events.Envelope) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var err error
	switch p := env.Payload.(type) {
	case events.JobCompleted:
		if !s.completed {
			return
		}
		err = s.svc.NotifyJobCompleted(sendCtx, p.Kind, p.Result, p.CompletedUnits, p.TotalUnits)
	case events.JobFailed:
		if !s.failed {
			return
		}
		err = s.svc.NotifyJobFailed(sendCtx, p.Kind, p.JobID, p.Error)
	default:
		return
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "notification failed", "notification_failure",
			logging.JobID(env.JobID),
			logging.String("event", string(env.Name)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "job outcome not pushed"),
		)
	}
}

// Filter selects the events the subscriber handles.
func Filter() events.Filter {
	return events.Filter{Names: []events.Name{events.NameJobCompleted, events.NameJobFailed}}
}
