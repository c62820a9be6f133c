package content

import (
	"context"
	"fmt"
	"strings"

	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

const planSystemPrompt = "You are a content strategist. Create a detailed content plan for social media posts."

// PlanStage turns a topic into an image prompt and caption style.
type PlanStage struct {
	llm      TextGenerator
	hashtags []string
}

// NewPlanStage builds the showrunner stage.
func NewPlanStage(llm TextGenerator, hashtags []string) *PlanStage {
	if len(hashtags) == 0 {
		hashtags = []string{"#DNA"}
	}
	return &PlanStage{llm: llm, hashtags: hashtags}
}

func (s *PlanStage) Name() string  { return "plan" }
func (s *PlanStage) Agent() string { return "Showrunner" }

// Execute fills state.Plan, falling back to a templated plan when the model
// fails or leaves fields empty.
func (s *PlanStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	topic := state.Topic
	fallback := Plan{
		ImagePrompt:  fallbackImagePrompt(topic),
		CaptionStyle: "casual",
		Hashtags:     append([]string(nil), s.hashtags...),
	}

	var reply struct {
		ImagePrompt  string `json:"imagePrompt"`
		CaptionStyle string `json:"captionStyle"`
	}
	user := fmt.Sprintf(`Create a content plan for a %s post about %s. Include an image prompt and caption style. Return JSON: {"imagePrompt": "...", "captionStyle": "casual/professional/inspirational"}`,
		topic.Niche, strings.Join(topic.Keywords, ", "))
	if err := s.llm.GenerateJSON(ctx, planSystemPrompt, user, &reply); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.Plan = fallback
		logging.WarnWithContext(run.Log(), "plan generation failed; using template", "plan_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "post uses a templated image prompt"),
		)
		return nil
	}

	plan := fallback
	if p := strings.TrimSpace(reply.ImagePrompt); p != "" {
		plan.ImagePrompt = p
	}
	if style := strings.TrimSpace(reply.CaptionStyle); style != "" {
		plan.CaptionStyle = style
	}
	state.Plan = plan
	run.Log().Debug("content plan created", logging.String("caption_style", plan.CaptionStyle))
	return nil
}

func (s *PlanStage) HealthCheck(context.Context) stage.Health {
	if !s.llm.Configured() {
		return stage.Unhealthy(s.Name(), "llm api key missing; templated plans will be used")
	}
	return stage.Healthy(s.Name())
}

func fallbackImagePrompt(topic Topic) string {
	return fmt.Sprintf("A beautiful %s scene featuring %s", strings.ToLower(topic.Niche), strings.Join(topic.Keywords, ", "))
}
