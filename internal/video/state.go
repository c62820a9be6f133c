package video

import (
	"context"

	"reelfactory/internal/jobs"
	"reelfactory/internal/services/gemini"
	"reelfactory/internal/workflow"
)

// StoryWriter is the chat completion surface the storyboard stage uses.
type StoryWriter interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, target any) error
	Configured() bool
}

// SceneRenderer renders one scene clip.
type SceneRenderer interface {
	GenerateSceneVideo(ctx context.Context, prompt string) (gemini.Media, error)
	Configured() bool
}

// Combiner joins the scene clips into the final video and returns its URL.
type Combiner interface {
	Combine(ctx context.Context, sceneURLs []string) (string, error)
}

// State is shared by the stages of one video job.
type State struct {
	Params     workflow.VideoParams
	Video      *jobs.Video
	Storyboard jobs.Storyboard
	VideoURL   string
}

func (s *State) sceneURLs() []string {
	urls := make([]string, 0, len(s.Storyboard.Scenes))
	for _, scene := range s.Storyboard.Scenes {
		if scene.MediaURL != "" {
			urls = append(urls, scene.MediaURL)
		}
	}
	return urls
}

func (s *State) result() jobs.JobResult {
	result := jobs.JobResult{VideoURL: s.VideoURL}
	if s.Video != nil {
		result.VideoID = s.Video.ID
	}
	result.Scenes = append([]jobs.Scene(nil), s.Storyboard.Scenes...)
	return result
}
