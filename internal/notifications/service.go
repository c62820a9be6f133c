package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
)

const userAgent = "ReelFactory/0.1.0"

// Service defines the notification surface.
type Service interface {
	NotifyJobCompleted(ctx context.Context, kind jobs.Kind, result jobs.JobResult, completed, total int) error
	NotifyJobFailed(ctx context.Context, kind jobs.Kind, jobID, message string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, kind jobs.Kind, result jobs.JobResult, completed, total int) error {
	var data payload
	switch kind {
	case jobs.KindVideo:
		data = payload{
			title:   "ReelFactory - Video Ready",
			message: fmt.Sprintf("🎬 Video ready with %d scenes: %s", len(result.Scenes), result.VideoURL),
			tags:    []string{"reelfactory", "video", "completed"},
		}
	default:
		message := fmt.Sprintf("✅ Published %d of %d posts", len(result.PostIDs), total)
		if failed := len(result.FailedIterations); failed > 0 {
			message = fmt.Sprintf("%s (%d failed)", message, failed)
		}
		data = payload{
			title:   "ReelFactory - Posts Published",
			message: message,
			tags:    []string{"reelfactory", "content", "completed"},
		}
	}
	if completed < total {
		data.message = fmt.Sprintf("%s\nUnits: %d/%d", data.message, completed, total)
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, kind jobs.Kind, jobID, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown"
	}
	return n.send(ctx, payload{
		title:    "ReelFactory - Job Failed",
		message:  fmt.Sprintf("❌ %s job %s failed: %s", kind, shortID(jobID), message),
		tags:     []string{"reelfactory", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "ReelFactory - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"reelfactory", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, jobs.Kind, jobs.JobResult, int, int) error {
	return nil
}
func (noopService) NotifyJobFailed(context.Context, jobs.Kind, string, string) error { return nil }
func (noopService) TestNotification(context.Context) error                           { return nil }
