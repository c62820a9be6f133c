package workflow

import (
	"context"
	"log/slog"
	"time"

	"reelfactory/internal/logging"
	"reelfactory/internal/services"
)

func withStageContext(ctx context.Context, stageName, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}

// stageLogger derives the logger handed to a stage. Job and stage fields come
// from ctx; configured per-stage levels apply.
func (m *Manager) stageLogger(ctx context.Context, stageName string, iteration int) *slog.Logger {
	logger := logging.WithContext(ctx, m.logger)
	if m.cfg != nil {
		logger = logging.ForStage(logger, m.cfg.Logging.StageOverrides, stageName)
	}
	if iteration > 0 {
		logger = logger.With(logging.Int("iteration", iteration))
	}
	return logger
}

// detachedContext outlives shutdown so terminal writes still land.
func detachedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}
