package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestJobStateKind(t *testing.T) {
	cases := map[jobs.State]statusKind{
		jobs.StateRunning:   statusInfo,
		jobs.StateCompleted: statusOK,
		jobs.StateFailed:    statusError,
		jobs.StateCancelled: statusWarn,
	}
	for state, want := range cases {
		if got := jobStateKind(state); got != want {
			t.Fatalf("jobStateKind(%s) = %v, want %v", state, got, want)
		}
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestTruncateAndShortID(t *testing.T) {
	if got := truncate("a  long\ncaption here", 8); got != "a long …" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("shortID = %q", got)
	}
}

func TestFormatFrame(t *testing.T) {
	frame := watchFrame{
		Time:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Event: events.NameSceneCompleted,
		JobID: "abcdef0123456789",
		Data:  json.RawMessage(`{"progress":50,"sceneNumber":2,"totalScenes":3}`),
	}
	line := formatFrame(frame)
	for _, want := range []string{"scene_completed", "abcdef01", "50%", "scene=2"} {
		requireContains(t, line, want)
	}
}
