package content

import (
	"context"

	"reelfactory/internal/jobs"
	"reelfactory/internal/services/circlo"
	"reelfactory/internal/services/gemini"
)

// TextGenerator is the chat completion surface the text stages use.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string, target any) error
	CompleteText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

// ImageGenerator renders post images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (gemini.Media, error)
	Configured() bool
}

// Publisher sends finished posts to the external platform.
type Publisher interface {
	CreatePost(ctx context.Context, post circlo.Post) (circlo.Published, error)
	Configured() bool
}

// Topic is the trend stage output.
type Topic struct {
	Niche    string
	Keywords []string
	// Fallback is set when the topic did not come from the model.
	Fallback bool
}

// Plan is the showrunner output.
type Plan struct {
	ImagePrompt  string
	CaptionStyle string
	Hashtags     []string
}

// State is shared by the stages of one content job.
type State struct {
	Count int

	// Per-iteration outputs, reset before each iteration.
	Topic       Topic
	Plan        Plan
	ImagePrompt string
	MediaURL    string
	Caption     string

	Posts  []jobs.Post
	Failed []int
}

func (s *State) resetIteration() {
	s.Topic = Topic{}
	s.Plan = Plan{}
	s.ImagePrompt = ""
	s.MediaURL = ""
	s.Caption = ""
}

func (s *State) result() jobs.JobResult {
	result := jobs.JobResult{FailedIterations: append([]int(nil), s.Failed...)}
	for _, post := range s.Posts {
		if post.Status == jobs.PostPublished {
			result.PostIDs = append(result.PostIDs, post.ID)
		}
	}
	return result
}
