package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/logging"
	"reelfactory/internal/services"
)

func logPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "out.log")
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestConsoleLoggerRendersSubjectAndFields(t *testing.T) {
	path := logPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "0123456789abcdef")
	ctx = services.WithKind(ctx, "video")
	ctx = services.WithStage(ctx, "scene")
	logger = logging.NewComponentLogger(logger, "workflow")
	logging.WithContext(ctx, logger).Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", 1500*time.Millisecond),
	)

	content := readLog(t, path)
	for _, fragment := range []string{"INFO [workflow] Video · Job 01234567 (scene) – stage completed", "    - Event: stage_complete", "    - Duration: 1.5s"} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in output %q", fragment, content)
		}
	}
	if strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
	if strings.Contains(content, "\x1b[") {
		t.Fatalf("expected no colour codes in file output, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	path := logPath(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("debug detail", logging.String(logging.FieldCorrelationID, "req-1"))
	content := readLog(t, path)
	if !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
	if !strings.Contains(content, "correlation_id: req-1") {
		t.Fatalf("expected raw debug fields, got %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	path := logPath(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("job failed", logging.String(logging.FieldJobID, "j1"), logging.Duration("stage_duration", 1500*time.Millisecond))

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &entry); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "job failed" || entry["job_id"] != "j1" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", entry)
	}
	if entry["stage_duration_ms"] != float64(1500) {
		t.Fatalf("expected stage_duration_ms=1500, got %v", entry)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesJournalAndHonoursStageOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "info"
	cfg.Logging.StageOverrides = map[string]string{"scene": "debug"}

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Debug("hidden debug")
	logging.ForStage(logger, cfg.Logging.StageOverrides, "Scene").Debug("scene debug")
	logging.ForStage(logger, cfg.Logging.StageOverrides, "caption").Debug("caption debug")

	content := readLog(t, logging.LogFilePath(cfg.Paths.LogDir, time.Now()))
	if strings.Contains(content, "hidden debug") || strings.Contains(content, "caption debug") {
		t.Fatalf("expected global level to filter debug, got %q", content)
	}
	if !strings.Contains(content, "scene debug") {
		t.Fatalf("expected stage override to allow debug, got %q", content)
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	path := logPath(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logging.WarnWithContext(logger, "publish skipped", "publish_skipped")
	content := readLog(t, path)
	for _, key := range []string{`"event_type":"publish_skipped"`, `"error_hint"`, `"impact"`} {
		if !strings.Contains(content, key) {
			t.Fatalf("expected %s in %q", key, content)
		}
	}
}

func TestCleanupOldLogsKeepsCurrentJournal(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "reelfactory-2020-01-01.log")
	current := filepath.Join(dir, "reelfactory-2020-01-02.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, current, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		past := time.Now().AddDate(0, 0, -30)
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, 14, current)
	if removed != 1 {
		t.Fatalf("expected 1 removal, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old journal removed, got %v", err)
	}
	for _, path := range []string{current, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
