package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and socket configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
	MediaDir   string `toml:"media_dir"`
	SocketPath string `toml:"socket_path"`
}

// LLM contains the chat-completion connection used by the text stages.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Gemini contains image and scene video generation settings.
type Gemini struct {
	APIKey              string `toml:"api_key"`
	ImageModel          string `toml:"image_model"`
	VideoModel          string `toml:"video_model"`
	AspectRatio         string `toml:"aspect_ratio"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
	PollMaxAttempts     int    `toml:"poll_max_attempts"`
}

// Storage selects where generated media is written.
type Storage struct {
	Backend         string `toml:"backend"`
	Bucket          string `toml:"bucket"`
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
	PublicBaseURL   string `toml:"public_base_url"`
}

// Publisher contains the external publishing platform connection.
type Publisher struct {
	BaseURL           string `toml:"base_url"`
	Token             string `toml:"token"`
	Profile           string `toml:"profile"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Content bounds the image post pipeline.
type Content struct {
	DefaultCount int      `toml:"default_count"`
	MaxCount     int      `toml:"max_count"`
	Niches       []string `toml:"niches"`
	Hashtags     []string `toml:"hashtags"`
}

// Video bounds the multi-scene video pipeline.
type Video struct {
	DefaultSceneCount      int `toml:"default_scene_count"`
	MaxSceneCount          int `toml:"max_scene_count"`
	DefaultDurationSeconds int `toml:"default_duration_seconds"`
	MinDurationSeconds     int `toml:"min_duration_seconds"`
	MaxDurationSeconds     int `toml:"max_duration_seconds"`
}

// Workflow contains orchestrator timing.
type Workflow struct {
	HeartbeatInterval    int `toml:"heartbeat_interval"`
	ShutdownGraceSeconds int `toml:"shutdown_grace_seconds"`
	SubscriberBuffer     int `toml:"subscriber_buffer"`
}

// Events contains the optional network surfaces that relay orchestrator events.
type Events struct {
	WebsocketBind string `toml:"websocket_bind"`
	MetricsBind   string `toml:"metrics_bind"`
	// Token, when set, is required as a bearer token on the websocket bind.
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
}

// Schedule contains cron-triggered content runs.
type Schedule struct {
	ContentCron  string `toml:"content_cron"`
	ContentCount int    `toml:"content_count"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for reelfactory.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and media directories plus the IPC socket
//   - LLM: chat completions for trend, plan, caption, and storyboard stages
//   - Gemini: image and scene video generation
//   - Storage: local or S3-compatible media storage
//   - Publisher: external post publishing
//   - Content / Video: pipeline defaults and limits
//   - Workflow: heartbeat, shutdown grace, and subscriber buffers
//   - Events: websocket relay and metrics listeners
//   - Notifications: ntfy push notification settings
//   - Schedule: cron-triggered content runs
//   - Logging: log format, level, and per-stage overrides
type Config struct {
	Paths         Paths         `toml:"paths"`
	LLM           LLM           `toml:"llm"`
	Gemini        Gemini        `toml:"gemini"`
	Storage       Storage       `toml:"storage"`
	Publisher     Publisher     `toml:"publisher"`
	Content       Content       `toml:"content"`
	Video         Video         `toml:"video"`
	Workflow      Workflow      `toml:"workflow"`
	Events        Events        `toml:"events"`
	Notifications Notifications `toml:"notifications"`
	Schedule      Schedule      `toml:"schedule"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("reelfactory.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir}
	if c.Storage.Backend == StorageLocal {
		dirs = append(dirs, c.Paths.MediaDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite job store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "reelfactory.db")
}

// LockPath returns the daemon single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "reelfactory.lock")
}

// HeartbeatInterval returns the job heartbeat cadence.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Workflow.HeartbeatInterval) * time.Second
}

// ShutdownGrace bounds how long shutdown waits for running jobs.
func (c *Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Workflow.ShutdownGraceSeconds) * time.Second
}

// PollInterval returns the scene generation polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Gemini.PollIntervalSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
