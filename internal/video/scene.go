package video

import (
	"context"
	"fmt"
	"strings"

	"reelfactory/internal/events"
	"reelfactory/internal/jobs"
	"reelfactory/internal/logging"
	"reelfactory/internal/stage"
	"reelfactory/internal/storage"
)

const (
	scenesStart  = 20
	scenesWeight = 60
)

var cameraInstructions = map[jobs.CameraAngle]string{
	jobs.AngleWide:     "Wide angle shot, showing the full environment",
	jobs.AngleMedium:   "Medium shot, balanced view of subject and surroundings",
	jobs.AngleCloseUp:  "Close-up shot, focusing on details",
	jobs.AngleOverhead: "Overhead shot, bird's eye view",
	jobs.AnglePOV:      "Point of view shot, first-person perspective",
}

// ScenePrompt renders the generation prompt for one scene.
func ScenePrompt(scene jobs.Scene) string {
	camera, ok := cameraInstructions[scene.CameraAngle]
	if !ok {
		camera = cameraInstructions[jobs.AngleMedium]
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(scene.Description))
	b.WriteString(". ")
	b.WriteString(camera)
	b.WriteString(".")
	if action := strings.TrimSpace(scene.Action); action != "" {
		b.WriteString(" ")
		b.WriteString(action)
		b.WriteString(".")
	}
	b.WriteString(" Cinematic lighting, high quality, professional video production.")
	return b.String()
}

func sceneProgress(completed, total int) float64 {
	if total <= 0 {
		return scenesStart
	}
	return scenesStart + float64(completed)/float64(total)*scenesWeight
}

// SceneStage renders the scene matching the run's iteration.
type SceneStage struct {
	renderer SceneRenderer
	media    storage.Store
	store    *jobs.Store
}

// NewSceneStage builds the scene director stage.
func NewSceneStage(renderer SceneRenderer, media storage.Store, store *jobs.Store) *SceneStage {
	return &SceneStage{renderer: renderer, media: media, store: store}
}

func (s *SceneStage) Name() string  { return "scene" }
func (s *SceneStage) Agent() string { return "Scene Director" }

// announce publishes scene_processing before the scene stage starts.
func (s *SceneStage) announce(_ context.Context, run *stage.Run, state *State) error {
	index := run.Iteration - 1
	if index < 0 || index >= len(state.Storyboard.Scenes) {
		return stage.Fail(s.Name(), fmt.Sprintf("scene %d is not on the storyboard", run.Iteration), nil)
	}
	run.Emit(events.SceneProcessing{
		JobID:        run.JobID,
		VideoID:      state.Video.ID,
		Progress:     sceneProgress(index, run.Iterations),
		CurrentScene: run.Iteration,
		TotalScenes:  run.Iterations,
		Description:  state.Storyboard.Scenes[index].Description,
	})
	return nil
}

func (s *SceneStage) Execute(ctx context.Context, run *stage.Run, state *State) error {
	index := run.Iteration - 1
	if index < 0 || index >= len(state.Storyboard.Scenes) {
		return stage.Fail(s.Name(), fmt.Sprintf("scene %d is not on the storyboard", run.Iteration), nil)
	}
	scene := state.Storyboard.Scenes[index]

	clip, err := s.renderer.GenerateSceneVideo(ctx, ScenePrompt(scene))
	if err != nil {
		return stage.FromService(s.Name(), err)
	}
	key := storage.ObjectKey("videos", run.JobID, fmt.Sprintf("scene-%d", scene.Number), clip.MIMEType)
	url, err := s.media.Put(ctx, key, clip.Data, clip.MIMEType)
	if err != nil {
		return stage.FromService(s.Name(), err)
	}

	state.Storyboard.Scenes[index].MediaURL = url
	state.Video.Scenes = state.Storyboard.Scenes
	if err := s.store.UpdateVideo(ctx, state.Video); err != nil {
		return stage.Persist("video scene", err)
	}

	run.Log().Info("scene rendered",
		logging.Int("scene", scene.Number),
		logging.String("media_url", url),
		logging.Int("bytes", len(clip.Data)),
	)
	run.Emit(events.SceneCompleted{
		JobID:       run.JobID,
		VideoID:     state.Video.ID,
		Progress:    sceneProgress(run.Iteration, run.Iterations),
		SceneNumber: scene.Number,
		TotalScenes: run.Iterations,
		MediaURL:    url,
	})
	return nil
}

func (s *SceneStage) HealthCheck(context.Context) stage.Health {
	if !s.renderer.Configured() {
		return stage.Unhealthy(s.Name(), "gemini api key missing")
	}
	if s.media == nil {
		return stage.Unhealthy(s.Name(), "media storage unavailable")
	}
	return stage.Healthy(s.Name())
}
