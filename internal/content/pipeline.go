package content

import (
	"context"
	"time"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
	"reelfactory/internal/storage"
	"reelfactory/internal/workflow"
)

// secondsPerPost is the rough wall time of one iteration.
const secondsPerPost = 30

// Deps carries the collaborators of the content stages.
type Deps struct {
	LLM       TextGenerator
	Images    ImageGenerator
	Media     storage.Store
	Publisher Publisher
	Store     *jobs.Store
	// Pick chooses a niche index; nil uses math/rand.
	Pick func(n int) int
}

// NewPipeline assembles the content post pipeline.
func NewPipeline(cfg *config.Config, deps Deps) *workflow.Definition[workflow.ContentParams, State] {
	trend := NewTrendStage(deps.LLM, cfg.Content.Niches, deps.Pick)
	plan := NewPlanStage(deps.LLM, cfg.Content.Hashtags)
	image := NewImageStage(deps.Images, deps.Media)
	caption := NewCaptionStage(deps.LLM)
	publish := NewPublishStage(deps.Publisher, deps.Store)

	return &workflow.Definition[workflow.ContentParams, State]{
		Kind:   jobs.KindContent,
		Policy: workflow.ContinuePerIteration,
		Agents: []workflow.AgentInfo{
			{Name: trend.Agent(), Role: "Finds trending topics and keywords"},
			{Name: plan.Agent(), Role: "Plans image prompts and caption style"},
			{Name: image.Agent(), Role: "Generates post images"},
			{Name: caption.Agent(), Role: "Writes post captions"},
			{Name: publish.Agent(), Role: "Publishes posts to GetCirclo"},
		},
		Phases: []workflow.Phase[State]{{
			Name:    "post",
			Weight:  100,
			Counted: true,
			Repeat:  func(s *State) int { return s.Count },
			Before: func(_ context.Context, _ *stage.Run, s *State) error {
				s.resetIteration()
				return nil
			},
			Steps: []workflow.Step[State]{
				{Stage: trend, Label: "Finding trending topic"},
				{Stage: plan, Label: "Creating content plan"},
				{Stage: image, Label: "Generating image", Weight: 2},
				{Stage: caption, Label: "Writing caption"},
				{Stage: publish, Label: "Publishing to GetCirclo"},
			},
		}},
		Validate: workflow.ContentValidator(cfg),
		Units:    func(p workflow.ContentParams) int { return p.Count },
		Estimate: func(p workflow.ContentParams) int { return p.Count * secondsPerPost },
		Begin: func(_ context.Context, _ *stage.Run, p workflow.ContentParams) (*State, error) {
			return &State{Count: p.Count}, nil
		},
		Result: func(s *State) jobs.JobResult { return s.result() },
		ItemFailed: func(ctx context.Context, run *stage.Run, s *State, stageName string, err error) error {
			s.Failed = append(s.Failed, run.Iteration)
			post, createErr := deps.Store.CreatePost(ctx, &jobs.Post{
				JobID:        run.JobID,
				Iteration:    run.Iteration,
				Niche:        s.Topic.Niche,
				Keywords:     s.Topic.Keywords,
				Caption:      s.Caption,
				MediaURL:     s.MediaURL,
				Status:       jobs.PostFailed,
				ErrorMessage: stageName + ": " + stage.Message(err),
				CreatedAt:    time.Now().UTC(),
			})
			if createErr != nil {
				return stage.Persist("failed post", createErr)
			}
			s.Posts = append(s.Posts, *post)
			return nil
		},
	}
}
