package content

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

const trendSystemPrompt = "You are a social media trend expert. Generate trending keywords and topics for the given niche. Return JSON only."

var fallbackKeywords = []string{"trending", "viral", "popular"}

// TrendStage picks a niche and asks the model for its trending keywords.
type TrendStage struct {
	llm    TextGenerator
	niches []string
	pick   func(n int) int
}

// NewTrendStage builds the trend stage. pick may be nil.
func NewTrendStage(llm TextGenerator, niches []string, pick func(n int) int) *TrendStage {
	if pick == nil {
		pick = rand.IntN
	}
	return &TrendStage{llm: llm, niches: niches, pick: pick}
}

func (s *TrendStage) Name() string  { return "trend" }
func (s *TrendStage) Agent() string { return "Trend Explorer" }

// Execute fills state.Topic. Model failures fall back to a random niche with
// generic keywords and never fail the stage.
func (s *TrendStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	if len(s.niches) == 0 {
		return stage.Fail(s.Name(), "no content niches configured", nil)
	}
	niche := s.niches[s.pick(len(s.niches))]

	var reply struct {
		Keywords []string `json:"keywords"`
	}
	user := fmt.Sprintf(`Generate 3-5 trending keywords for the "%s" niche. Return as JSON: {"keywords": ["keyword1", "keyword2", ...]}`, niche)
	err := s.llm.GenerateJSON(ctx, trendSystemPrompt, user, &reply)
	if err == nil {
		state.Topic = Topic{Niche: niche, Keywords: cleanKeywords(reply.Keywords)}
		run.Log().Info("topic selected",
			logging.String("niche", niche),
			logging.Int("keywords", len(state.Topic.Keywords)),
		)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	niche = s.niches[s.pick(len(s.niches))]
	state.Topic = Topic{Niche: niche, Keywords: append([]string(nil), fallbackKeywords...), Fallback: true}
	logging.WarnWithContext(run.Log(), "trend lookup failed; using generic keywords", "trend_fallback",
		logging.String("niche", niche),
		logging.Error(err),
		logging.String(logging.FieldImpact, "post uses generic keywords"),
	)
	return nil
}

func (s *TrendStage) HealthCheck(context.Context) stage.Health {
	if !s.llm.Configured() {
		return stage.Unhealthy(s.Name(), "llm api key missing; generic keywords will be used")
	}
	return stage.Healthy(s.Name())
}

func cleanKeywords(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
