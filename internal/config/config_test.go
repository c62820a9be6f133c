package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelfactory/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeysAndExpandsPaths(t *testing.T) {
	t.Setenv("REELFACTORY_LLM_API_KEY", "llm-key")
	t.Setenv("REELFACTORY_GEMINI_API_KEY", "gemini-key")
	t.Setenv("REELFACTORY_PUBLISHER_TOKEN", "publish-token")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "reelfactory")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.SocketPath != filepath.Join(wantData, "reelfactory.sock") {
		t.Fatalf("unexpected socket path: %q", cfg.Paths.SocketPath)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Gemini.APIKey != "gemini-key" {
		t.Fatalf("expected Gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Publisher.Token != "publish-token" {
		t.Fatalf("expected publisher token from env, got %q", cfg.Publisher.Token)
	}
	if cfg.Storage.Backend != config.StorageLocal {
		t.Fatalf("expected local storage by default, got %q", cfg.Storage.Backend)
	}
	if cfg.Content.DefaultCount != 5 || cfg.Content.MaxCount != 10 {
		t.Fatalf("unexpected content bounds: %+v", cfg.Content)
	}
	if cfg.Video.DefaultSceneCount != 3 || cfg.Video.DefaultDurationSeconds != 30 {
		t.Fatalf("unexpected video defaults: %+v", cfg.Video)
	}
	if len(cfg.Content.Niches) != len(config.DefaultNiches) {
		t.Fatalf("expected default niches, got %v", cfg.Content.Niches)
	}
	if cfg.HeartbeatInterval().Seconds() != float64(config.Default().Workflow.HeartbeatInterval) {
		t.Fatalf("unexpected heartbeat interval: %v", cfg.HeartbeatInterval())
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("REELFACTORY_LLM_API_KEY", "ignored")

	path := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"data_dir": "~/custom",
		},
		"llm": map[string]any{
			"api_key": "file-key",
			"model":   "test/model",
		},
		"content": map[string]any{
			"default_count": 3,
			"niches":        []string{" Travel ", "travel", "Gaming"},
		},
		"logging": map[string]any{
			"format":          "JSON",
			"stage_overrides": map[string]string{" Scene ": "DEBUG"},
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "custom") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("expected file key to win over env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "test/model" {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.Content.DefaultCount != 3 {
		t.Fatalf("unexpected default count: %d", cfg.Content.DefaultCount)
	}
	if got := strings.Join(cfg.Content.Niches, ","); got != "Travel,Gaming" {
		t.Fatalf("expected de-duplicated niches, got %q", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.StageOverrides["scene"] != "debug" {
		t.Fatalf("expected normalized stage override, got %v", cfg.Logging.StageOverrides)
	}
}

func TestValidateRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "count above hard cap",
			mutate: func(c *config.Config) { c.Content.MaxCount = 11 },
			want:   "content.max_count",
		},
		{
			name:   "scene cap",
			mutate: func(c *config.Config) { c.Video.MaxSceneCount = 6 },
			want:   "video.max_scene_count",
		},
		{
			name:   "duration bounds",
			mutate: func(c *config.Config) { c.Video.MinDurationSeconds = 5 },
			want:   "video duration bounds",
		},
		{
			name:   "s3 without bucket",
			mutate: func(c *config.Config) { c.Storage.Backend = config.StorageS3 },
			want:   "storage.bucket",
		},
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Storage.Backend = "ftp" },
			want:   "storage.backend",
		},
		{
			name:   "bad log level",
			mutate: func(c *config.Config) { c.Logging.Level = "loud" },
			want:   "logging.level",
		},
		{
			name:   "bad cron",
			mutate: func(c *config.Config) { c.Schedule.ContentCron = "every tuesday" },
			want:   "schedule.content_cron",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.SocketPath = "/tmp/reelfactory.sock"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateSampleWritesParsableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample config to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesMediaDirForLocalStorage(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.MediaDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}
