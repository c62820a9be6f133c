package testsupport

import (
	"path/filepath"
	"testing"

	"reelfactory/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// External services point nowhere; tests inject fakes for them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.SocketPath = filepath.Join(base, "data", "reelfactory.sock")
	cfgVal.Storage.Backend = config.StorageLocal
	cfgVal.Storage.PublicBaseURL = "http://media.test"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Gemini.APIKey = "test"
	cfgVal.Gemini.PollIntervalSeconds = 1
	cfgVal.Gemini.PollMaxAttempts = 3
	cfgVal.Publisher.Token = "test"
	cfgVal.Workflow.HeartbeatInterval = 1
	cfgVal.Workflow.ShutdownGraceSeconds = 2
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithPublisherURL points the publisher at a test server.
func WithPublisherURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Publisher.BaseURL = url
	}
}

// WithLLMURL points the chat completion client at a test server.
func WithLLMURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = url
	}
}

// WithNtfyTopic enables ntfy notifications against the given topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
		b.cfg.Notifications.JobCompleted = true
		b.cfg.Notifications.JobFailed = true
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
