package video

import (
	"context"
	"fmt"
	"strings"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

const (
	storyboardSystemPrompt = "You are a professional video storyboard creator. Create engaging, cinematic video stories with multiple camera angles and smooth transitions."
	storyboardProgress     = 20
)

type storyboardReply struct {
	Title         string `json:"title"`
	Niche         string `json:"niche"`
	OverallPrompt string `json:"overallPrompt"`
	Scenes        []struct {
		Description string `json:"description"`
		CameraAngle string `json:"cameraAngle"`
		Duration    int    `json:"duration"`
		Action      string `json:"action"`
		Transition  string `json:"transition"`
	} `json:"scenes"`
}

// StoryboardStage plans the scenes of a video.
type StoryboardStage struct {
	llm   StoryWriter
	store *jobs.Store
}

// NewStoryboardStage builds the storyboard artist stage.
func NewStoryboardStage(llm StoryWriter, store *jobs.Store) *StoryboardStage {
	return &StoryboardStage{llm: llm, store: store}
}

func (s *StoryboardStage) Name() string  { return "storyboard" }
func (s *StoryboardStage) Agent() string { return "Storyboard Artist" }

func (s *StoryboardStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	params := state.Params
	var reply storyboardReply
	if err := s.llm.GenerateJSON(ctx, storyboardSystemPrompt, storyboardPrompt(params.Prompt, params.Niche, params.SceneCount, params.TotalDuration), &reply); err != nil {
		return stage.FromService(s.Name(), err)
	}
	board, err := buildStoryboard(reply, params.Niche, params.SceneCount, params.TotalDuration)
	if err != nil {
		return stage.Fail(s.Name(), err.Error(), nil)
	}
	state.Storyboard = board

	video := state.Video
	video.Title = board.Title
	video.Niche = board.Niche
	video.StoryScript = board.OverallPrompt
	video.Scenes = board.Scenes
	video.Status = jobs.VideoProcessing
	if err := s.store.UpdateVideo(ctx, video); err != nil {
		return stage.Persist("video storyboard", err)
	}

	run.Log().Info("storyboard created",
		logging.String("title", board.Title),
		logging.Int("scenes", len(board.Scenes)),
		logging.Int("duration_seconds", board.TotalDuration()),
	)
	run.Emit(events.StoryboardCreated{JobID: run.JobID, VideoID: video.ID, Progress: storyboardProgress, Storyboard: board})
	return nil
}

func (s *StoryboardStage) HealthCheck(context.Context) stage.Health {
	if !s.llm.Configured() {
		return stage.Unhealthy(s.Name(), "llm api key missing")
	}
	return stage.Healthy(s.Name())
}

func storyboardPrompt(topic, niche string, sceneCount, totalDuration int) string {
	var b strings.Builder
	b.WriteString("Create a video storyboard for the following:\n\n")
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	if niche != "" {
		fmt.Fprintf(&b, "Niche: %s\n", niche)
	}
	fmt.Fprintf(&b, "Number of scenes: %d\n", sceneCount)
	fmt.Fprintf(&b, "Total duration: %d seconds\n\n", totalDuration)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "1. Create a compelling story that flows naturally across %d scenes\n", sceneCount)
	b.WriteString("2. Each scene should have a clear action and purpose\n")
	b.WriteString("3. Use varied camera angles (wide, medium, close-up, overhead, pov)\n")
	b.WriteString("4. Choose appropriate transitions between scenes\n")
	b.WriteString("5. Make it visually engaging and dynamic\n\n")
	b.WriteString("Return a JSON object with this exact structure:\n")
	fmt.Fprintf(&b, `{
  "title": "Video title",
  "niche": "Content niche",
  "overallPrompt": "Overall description of the video",
  "scenes": [
    {
      "sceneNumber": 1,
      "description": "Detailed visual description of the scene",
      "cameraAngle": "wide|medium|close-up|overhead|pov",
      "duration": %d,
      "action": "What happens in this scene",
      "transition": "cut|fade|dissolve|wipe"
    }
  ]
}`, sceneDuration(totalDuration, sceneCount))
	return b.String()
}

func sceneDuration(total, count int) int {
	if count <= 0 {
		return total
	}
	return total / count
}

// buildStoryboard renumbers scenes from 1, keeps at most sceneCount of them
// and fills defaults the model left out.
func buildStoryboard(reply storyboardReply, niche string, sceneCount, totalDuration int) (jobs.Storyboard, error) {
	if len(reply.Scenes) == 0 {
		return jobs.Storyboard{}, fmt.Errorf("storyboard has no scenes")
	}
	if sceneCount > 0 && len(reply.Scenes) > sceneCount {
		reply.Scenes = reply.Scenes[:sceneCount]
	}
	perScene := sceneDuration(totalDuration, sceneCount)

	board := jobs.Storyboard{
		Title:         strings.TrimSpace(reply.Title),
		Niche:         firstNonEmpty(reply.Niche, niche, "general"),
		OverallPrompt: strings.TrimSpace(reply.OverallPrompt),
		Scenes:        make([]jobs.Scene, 0, len(reply.Scenes)),
	}
	for i, raw := range reply.Scenes {
		description := strings.TrimSpace(raw.Description)
		if description == "" {
			return jobs.Storyboard{}, fmt.Errorf("scene %d has no description", i+1)
		}
		duration := raw.Duration
		if duration <= 0 {
			duration = perScene
		}
		board.Scenes = append(board.Scenes, jobs.Scene{
			Number:      i + 1,
			Description: description,
			CameraAngle: jobs.NormalizeCameraAngle(raw.CameraAngle),
			Action:      strings.TrimSpace(raw.Action),
			Transition:  jobs.NormalizeTransition(raw.Transition),
			Duration:    duration,
		})
	}
	return board, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
