package stage

import (
	"errors"
	"fmt"
	"testing"

	"reelfactory/internal/events"
	"reelfactory/internal/services"
)

func TestFromServiceLeavesConfigurationToPolicy(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "image", "generate", "Gemini API key missing", nil)
	stageErr := FromService("image", err)
	if stageErr.Abort {
		t.Fatal("configuration errors must not decide the job outcome")
	}
	if !errors.Is(stageErr, services.ErrConfiguration) {
		t.Fatal("expected configuration marker to survive conversion")
	}
	if stageErr.Retryable {
		t.Fatal("stage errors are never retryable")
	}
	if stageErr.Message != "Gemini API key missing" {
		t.Fatalf("unexpected message %q", stageErr.Message)
	}
}

func TestFromServiceLeavesExternalToPolicy(t *testing.T) {
	err := services.Wrap(services.ErrExternal, "publish", "create post", "publisher rejected post", errors.New("status 502"))
	stageErr := FromService("publish", err)
	if stageErr.Abort {
		t.Fatal("external errors should not abort")
	}
	if !errors.Is(stageErr, services.ErrExternal) {
		t.Fatal("expected marker to survive conversion")
	}
	if got := Message(stageErr); got != "publisher rejected post: status 502" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestFromServiceKeepsExistingStageError(t *testing.T) {
	original := Fail("storyboard", "no scenes", nil)
	wrapped := fmt.Errorf("run: %w", original)
	if got := FromService("other", wrapped); got != original {
		t.Fatalf("expected original stage error, got %#v", got)
	}
}

func TestMessageFallsBackToErrorText(t *testing.T) {
	if got := Message(errors.New("disk full")); got != "disk full" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(nil); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
	if got := (&Error{Stage: "combine", Cause: errors.New("no scenes")}).Error(); got != "combine: no scenes" {
		t.Fatalf("unexpected error text %q", got)
	}
}

func TestLabel(t *testing.T) {
	cases := map[string]string{
		"scene_director": "Scene Director",
		"trend":          "Trend",
		"image-gen":      "Image Gen",
		"":               "Unknown",
	}
	for in, want := range cases {
		if got := Label(in); got != want {
			t.Fatalf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}

type recordingEmitter struct{ got []events.Payload }

func (r *recordingEmitter) Publish(p events.Payload) { r.got = append(r.got, p) }

func TestRunEmitAndLogHandleNil(t *testing.T) {
	var nilRun *Run
	nilRun.Emit(events.JobStatus{JobID: "x"})
	if nilRun.Log() == nil {
		t.Fatal("expected discard logger")
	}

	sink := &recordingEmitter{}
	run := &Run{JobID: "x", Events: sink}
	run.Emit(events.JobStatus{JobID: "x"})
	if len(sink.got) != 1 {
		t.Fatalf("expected 1 emitted payload, got %d", len(sink.got))
	}
}

func TestHealthConstructors(t *testing.T) {
	if h := Healthy("trend"); !h.Ready || h.Name != "trend" {
		t.Fatalf("unexpected healthy record %#v", h)
	}
	if h := Unhealthy("image", "missing key"); h.Ready || h.Detail != "missing key" {
		t.Fatalf("unexpected unhealthy record %#v", h)
	}
}

func TestRequireSettings(t *testing.T) {
	h := RequireSettings("publish", "publisher.token", "", "publisher.base_url", "https://x")
	if h.Ready || h.Detail != "missing publisher.token" {
		t.Fatalf("unexpected health %#v", h)
	}
	if h := RequireSettings("publish", "publisher.token", "t"); !h.Ready {
		t.Fatalf("expected ready, got %#v", h)
	}
}

func TestPersistMarksError(t *testing.T) {
	cause := errors.New("database is locked")
	err := Persist("post", cause)
	if !errors.Is(err, ErrPersist) || !errors.Is(err, cause) {
		t.Fatalf("expected both markers, got %v", err)
	}
	if Persist("post", nil) != nil {
		t.Fatal("expected nil for nil cause")
	}
}
