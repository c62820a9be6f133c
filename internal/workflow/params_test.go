package workflow_test

import (
	"errors"
	"strings"
	"testing"

	"reelfactory/internal/services"
	"reelfactory/internal/testsupport"
	"reelfactory/internal/workflow"
)

func TestContentValidatorHonoursConfiguredMax(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Content.MaxCount = 3
	cfg.Content.DefaultCount = 2
	check := workflow.ContentValidator(cfg)

	p, err := check(workflow.ContentParams{})
	if err != nil || p.Count != 2 {
		t.Fatalf("expected default count 2, got %d (%v)", p.Count, err)
	}
	if _, err := check(workflow.ContentParams{Count: 3}); err != nil {
		t.Fatalf("count at the configured max: %v", err)
	}
	_, err = check(workflow.ContentParams{Count: 4})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "content.max_count 3") {
		t.Fatalf("expected max_count rejection, got %v", err)
	}
	_, err = check(workflow.ContentParams{Count: -1})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "gte=1") {
		t.Fatalf("expected tag rejection, got %v", err)
	}
}

func TestVideoValidatorHonoursConfiguredBounds(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Video.MaxSceneCount = 2
	cfg.Video.MinDurationSeconds = 20
	cfg.Video.MaxDurationSeconds = 40
	check := workflow.VideoValidator(cfg)

	p, err := check(workflow.VideoParams{Prompt: "  harbour at dawn ", SceneCount: 2, TotalDuration: 40})
	if err != nil {
		t.Fatalf("valid params: %v", err)
	}
	if p.Prompt != "harbour at dawn" {
		t.Fatalf("expected trimmed prompt, got %q", p.Prompt)
	}

	cases := []struct {
		name   string
		params workflow.VideoParams
		want   string
	}{
		{"scenes above config", workflow.VideoParams{Prompt: "x", SceneCount: 3, TotalDuration: 30}, "video.max_scene_count 2"},
		{"duration below config", workflow.VideoParams{Prompt: "x", SceneCount: 1, TotalDuration: 15}, "outside 20..40"},
		{"duration above config", workflow.VideoParams{Prompt: "x", SceneCount: 1, TotalDuration: 45}, "outside 20..40"},
		{"missing prompt", workflow.VideoParams{Prompt: "  ", SceneCount: 1, TotalDuration: 30}, "Prompt is required"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := check(tc.params)
			if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
		})
	}
}
