package video

import (
	"context"
	"errors"
	"time"

	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
)

// FirstClip is the placeholder Combiner: it returns the first scene clip as
// the final video. Real concatenation needs a transcoder.
type FirstClip struct{}

// Combine implements Combiner.
func (FirstClip) Combine(_ context.Context, sceneURLs []string) (string, error) {
	if len(sceneURLs) == 0 {
		return "", errors.New("no scene clips to combine")
	}
	return sceneURLs[0], nil
}

// CombineStage produces the final video and marks the entity completed.
type CombineStage struct {
	combiner Combiner
	store    *jobs.Store
	now      func() time.Time
}

// NewCombineStage builds the editor stage. A nil combiner uses FirstClip.
func NewCombineStage(combiner Combiner, store *jobs.Store) *CombineStage {
	if combiner == nil {
		combiner = FirstClip{}
	}
	return &CombineStage{combiner: combiner, store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *CombineStage) Name() string  { return "combine" }
func (s *CombineStage) Agent() string { return "Editor" }

func (s *CombineStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	urls := state.sceneURLs()
	if len(urls) != len(state.Storyboard.Scenes) {
		return stage.Fail(s.Name(), "scene clips are missing", nil)
	}
	finalURL, err := s.combiner.Combine(ctx, urls)
	if err != nil {
		return stage.FromService(s.Name(), err)
	}
	state.VideoURL = finalURL

	completedAt := s.now()
	video := state.Video
	video.Status = jobs.VideoCompleted
	video.VideoURL = finalURL
	video.DurationSeconds = state.Storyboard.TotalDuration()
	video.CompletedAt = &completedAt
	if err := s.store.UpdateVideo(ctx, video); err != nil {
		return stage.Persist("video completion", err)
	}
	run.Log().Info("video combined",
		logging.String("video_url", finalURL),
		logging.Int("scenes", len(urls)),
	)
	return nil
}

func (s *CombineStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.Name())
}
