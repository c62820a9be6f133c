package workflow

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"reelfactory/internal/config"
	"reelfactory/internal/jobs"
	"reelfactory/internal/services"
)

// ContentParams starts a content post job.
type ContentParams struct {
	Count int `json:"count" validate:"gte=1,lte=10"`
}

// VideoParams starts a video job.
type VideoParams struct {
	Prompt        string `json:"prompt" validate:"required"`
	Niche         string `json:"niche,omitempty"`
	SceneCount    int    `json:"sceneCount" validate:"gte=1,lte=5"`
	TotalDuration int    `json:"totalDuration" validate:"gte=15,lte=60"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ContentValidator defaults and validates content parameters. Struct tags hold
// the hard limits; cfg may narrow them.
func ContentValidator(cfg *config.Config) func(ContentParams) (ContentParams, error) {
	return func(p ContentParams) (ContentParams, error) {
		if p.Count == 0 {
			p.Count = cfg.Content.DefaultCount
		}
		if err := validate.Struct(p); err != nil {
			return p, validationError(jobs.KindContent, err)
		}
		if p.Count > cfg.Content.MaxCount {
			return p, validationError(jobs.KindContent, fmt.Errorf("count %d exceeds content.max_count %d", p.Count, cfg.Content.MaxCount))
		}
		return p, nil
	}
}

// VideoValidator defaults and validates video parameters against cfg.
func VideoValidator(cfg *config.Config) func(VideoParams) (VideoParams, error) {
	return func(p VideoParams) (VideoParams, error) {
		p.Prompt = strings.TrimSpace(p.Prompt)
		p.Niche = strings.TrimSpace(p.Niche)
		if p.SceneCount == 0 {
			p.SceneCount = cfg.Video.DefaultSceneCount
		}
		if p.TotalDuration == 0 {
			p.TotalDuration = cfg.Video.DefaultDurationSeconds
		}
		if err := validate.Struct(p); err != nil {
			return p, validationError(jobs.KindVideo, err)
		}
		if p.SceneCount > cfg.Video.MaxSceneCount {
			return p, validationError(jobs.KindVideo, fmt.Errorf("sceneCount %d exceeds video.max_scene_count %d", p.SceneCount, cfg.Video.MaxSceneCount))
		}
		if p.TotalDuration < cfg.Video.MinDurationSeconds || p.TotalDuration > cfg.Video.MaxDurationSeconds {
			return p, validationError(jobs.KindVideo, fmt.Errorf("totalDuration %d outside %d..%d", p.TotalDuration, cfg.Video.MinDurationSeconds, cfg.Video.MaxDurationSeconds))
		}
		return p, nil
	}
}

func validationError(kind jobs.Kind, err error) error {
	message := err.Error()
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			if fe.Param() != "" {
				parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			} else {
				parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
			}
		}
		message = strings.Join(parts, "; ")
	}
	return services.Wrap(services.ErrValidation, string(kind), "validate params", message, nil)
}

func invalidParams(kind jobs.Kind, raw any) error {
	return services.Wrap(services.ErrValidation, string(kind), "validate params",
		fmt.Sprintf("unexpected parameter type %T", raw), nil)
}
