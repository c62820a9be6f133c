package content

import (
	"context"
	"fmt"
	"strings"

	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
	"reelfactory/internal/storage"
)

const imageStyleSuffix = ". Realistic iPhone photo style, natural lighting, high quality, professional photography, candid moment, authentic, 3:4 aspect ratio."

// ImageStage renders the planned image and stores it.
type ImageStage struct {
	images ImageGenerator
	media  storage.Store
}

// NewImageStage builds the image generator stage.
func NewImageStage(images ImageGenerator, media storage.Store) *ImageStage {
	return &ImageStage{images: images, media: media}
}

func (s *ImageStage) Name() string  { return "image" }
func (s *ImageStage) Agent() string { return "Image Generator" }

// Execute has no fallback; any failure fails the iteration.
func (s *ImageStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	prompt := strings.TrimSpace(state.Plan.ImagePrompt) + imageStyleSuffix
	state.ImagePrompt = prompt

	generated, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		return stage.FromService(s.Name(), err)
	}
	key := storage.ObjectKey("posts", run.JobID, fmt.Sprintf("%d", run.Iteration), generated.MIMEType)
	url, err := s.media.Put(ctx, key, generated.Data, generated.MIMEType)
	if err != nil {
		return stage.FromService(s.Name(), err)
	}
	state.MediaURL = url
	run.Log().Info("image stored",
		logging.String("media_url", url),
		logging.Int("bytes", len(generated.Data)),
	)
	return nil
}

func (s *ImageStage) HealthCheck(context.Context) stage.Health {
	if !s.images.Configured() {
		return stage.Unhealthy(s.Name(), "gemini api key missing")
	}
	if s.media == nil {
		return stage.Unhealthy(s.Name(), "media storage unavailable")
	}
	return stage.Healthy(s.Name())
}
