package video

import (
	"context"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
	"reelfactory/internal/stage"
	"reelfactory/internal/storage"
	"reelfactory/internal/workflow"
)

const (
	storyboardSeconds = 15
	// Scene generation polls a long-running operation; a minute per scene is
	// typical.
	sceneSeconds = 60
)

// Deps carries the collaborators of the video stages.
type Deps struct {
	LLM      StoryWriter
	Renderer SceneRenderer
	Media    storage.Store
	Store    *jobs.Store
	// Combiner defaults to FirstClip.
	Combiner Combiner
}

// NewPipeline assembles the video pipeline.
func NewPipeline(cfg *config.Config, deps Deps) *workflow.Definition[workflow.VideoParams, State] {
	storyboard := NewStoryboardStage(deps.LLM, deps.Store)
	scene := NewSceneStage(deps.Renderer, deps.Media, deps.Store)
	combine := NewCombineStage(deps.Combiner, deps.Store)

	return &workflow.Definition[workflow.VideoParams, State]{
		Kind:   jobs.KindVideo,
		Policy: workflow.AbortOnError,
		Agents: []workflow.AgentInfo{
			{Name: storyboard.Agent(), Role: "Writes multi-scene storyboards"},
			{Name: scene.Agent(), Role: "Renders scene clips"},
			{Name: combine.Agent(), Role: "Combines scenes into the final video"},
		},
		Phases: []workflow.Phase[State]{
			{
				Name:   "storyboard",
				Weight: storyboardProgress,
				Steps:  []workflow.Step[State]{{Stage: storyboard, Label: "Creating storyboard"}},
			},
			{
				Name:    "scenes",
				Weight:  scenesWeight,
				Counted: true,
				Repeat:  func(s *State) int { return len(s.Storyboard.Scenes) },
				Before:  scene.announce,
				Steps:   []workflow.Step[State]{{Stage: scene, Label: "Generating scene"}},
			},
			{
				Name:   "combine",
				Weight: 100 - storyboardProgress - scenesWeight,
				Steps:  []workflow.Step[State]{{Stage: combine, Label: "Combining scenes"}},
			},
		},
		Validate: workflow.VideoValidator(cfg),
		Units:    func(p workflow.VideoParams) int { return p.SceneCount },
		Estimate: func(p workflow.VideoParams) int { return storyboardSeconds + p.SceneCount*sceneSeconds },
		Begin: func(ctx context.Context, run *stage.Run, p workflow.VideoParams) (*State, error) {
			video, err := deps.Store.CreateVideo(ctx, &jobs.Video{
				JobID:           run.JobID,
				Prompt:          p.Prompt,
				Niche:           firstNonEmpty(p.Niche, "general"),
				Status:          jobs.VideoPending,
				DurationSeconds: p.TotalDuration,
			})
			if err != nil {
				return nil, stage.Persist("video", err)
			}
			return &State{Params: p, Video: video}, nil
		},
		Result: func(s *State) jobs.JobResult { return s.result() },
		End: func(ctx context.Context, _ *stage.Run, s *State, outcome jobs.State, message string) error {
			if s.Video == nil {
				return nil
			}
			switch outcome {
			case jobs.StateCancelled:
				s.Video.Status = jobs.VideoCancelled
			default:
				s.Video.Status = jobs.VideoFailed
				s.Video.ErrorMessage = message
			}
			if err := deps.Store.UpdateVideo(ctx, s.Video); err != nil {
				return stage.Persist("video status", err)
			}
			return nil
		},
	}
}
