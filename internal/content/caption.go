package content

import (
	"context"
	"fmt"
	"strings"

	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

// CaptionStage writes the post caption. Hashtags are always appended.
type CaptionStage struct {
	llm TextGenerator
}

// NewCaptionStage builds the caption writer stage.
func NewCaptionStage(llm TextGenerator) *CaptionStage {
	return &CaptionStage{llm: llm}
}

func (s *CaptionStage) Name() string  { return "caption" }
func (s *CaptionStage) Agent() string { return "Caption Writer" }

func (s *CaptionStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	plan, topic := state.Plan, state.Topic
	hashtags := strings.Join(plan.Hashtags, " ")
	keywords := strings.Join(topic.Keywords, ", ")

	system := fmt.Sprintf("You are a social media caption writer. Write engaging, authentic captions in a %s style.", plan.CaptionStyle)
	user := fmt.Sprintf("Write a %s caption for a %s post about %s. Keep it concise (2-3 sentences), engaging, and authentic. Do not include hashtags in the caption.",
		plan.CaptionStyle, topic.Niche, keywords)

	text, err := s.llm.CompleteText(ctx, system, user)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		state.Caption = strings.TrimSpace(fmt.Sprintf("Discover the best of %s! %s %s", topic.Niche, keywords, hashtags))
		logging.WarnWithContext(run.Log(), "caption generation failed; using template", "caption_fallback",
			logging.Error(err),
			logging.String(logging.FieldImpact, "post uses a templated caption"),
		)
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "Check this out!"
	}
	state.Caption = strings.TrimSpace(text + " " + hashtags)
	return nil
}

func (s *CaptionStage) HealthCheck(context.Context) stage.Health {
	if !s.llm.Configured() {
		return stage.Unhealthy(s.Name(), "llm api key missing; templated captions will be used")
	}
	return stage.Healthy(s.Name())
}
