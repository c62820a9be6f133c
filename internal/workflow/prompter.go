package workflow

import (
	"context"
	"errors"
	"strings"

	"reelfactory/internal/jobs"
	"reelfactory/internal/services"
)

// ErrNoPrompter is returned by the prompt helpers when no Prompter is set.
var ErrNoPrompter = errors.New("video prompter not configured")

// PromptOptions describes the video idea a caller wants drafted.
type PromptOptions struct {
	Niche       string   `json:"niche" validate:"required"`
	Topic       string   `json:"topic,omitempty"`
	Mood        string   `json:"mood,omitempty" validate:"omitempty,oneof=energetic calm dramatic playful professional casual"`
	VisualStyle string   `json:"visualStyle,omitempty"`
	Keywords    []string `json:"keywords,omitempty" validate:"omitempty,dive,required"`
}

// PromptIdea is a drafted video prompt, ready to feed StartVideo.
type PromptIdea struct {
	Concept           string `json:"concept"`
	Prompt            string `json:"prompt"`
	VisualStyle       string `json:"visualStyle"`
	SuggestedScenes   int    `json:"suggestedScenes"`
	SuggestedDuration int    `json:"suggestedDuration"`
	Mood              string `json:"mood"`
}

// NicheTemplate lists the building blocks used to prompt for one niche.
type NicheTemplate struct {
	ContentTypes   []string `json:"contentTypes"`
	VisualStyles   []string `json:"visualStyles"`
	CommonElements []string `json:"commonElements"`
	AudioElements  []string `json:"audioElements"`
}

// Prompter drafts video prompts from niche templates.
type Prompter interface {
	Generate(ctx context.Context, opts PromptOptions) (PromptIdea, error)
	Suggestions(ctx context.Context, opts PromptOptions, count int) ([]PromptIdea, error)
	Niches() []string
	NicheInfo(niche string) (NicheTemplate, bool)
}

// Suggestion counts accepted by PromptSuggestions.
const (
	DefaultSuggestions = 3
	MaxSuggestions     = 5
)

// SetPrompter installs the prompt helper used by the Prompt* methods.
func (m *Manager) SetPrompter(p Prompter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompter = p
}

func (m *Manager) currentPrompter() (Prompter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.prompter == nil {
		return nil, ErrNoPrompter
	}
	return m.prompter, nil
}

// Prompt drafts one video prompt.
func (m *Manager) Prompt(ctx context.Context, opts PromptOptions) (PromptIdea, error) {
	p, err := m.currentPrompter()
	if err != nil {
		return PromptIdea{}, err
	}
	opts, err = normalizePromptOptions(opts)
	if err != nil {
		return PromptIdea{}, err
	}
	return p.Generate(ctx, opts)
}

// PromptSuggestions drafts up to count prompts. A zero count takes
// DefaultSuggestions.
func (m *Manager) PromptSuggestions(ctx context.Context, opts PromptOptions, count int) ([]PromptIdea, error) {
	p, err := m.currentPrompter()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		count = DefaultSuggestions
	}
	if count < 1 || count > MaxSuggestions {
		return nil, services.Wrap(services.ErrValidation, "prompter", "suggest", "count must be between 1 and 5", nil)
	}
	opts, err = normalizePromptOptions(opts)
	if err != nil {
		return nil, err
	}
	return p.Suggestions(ctx, opts, count)
}

// Niches lists the niches that have prompt templates.
func (m *Manager) Niches() ([]string, error) {
	p, err := m.currentPrompter()
	if err != nil {
		return nil, err
	}
	return p.Niches(), nil
}

// NicheInfo returns the template for niche.
func (m *Manager) NicheInfo(niche string) (NicheTemplate, error) {
	p, err := m.currentPrompter()
	if err != nil {
		return NicheTemplate{}, err
	}
	info, ok := p.NicheInfo(strings.TrimSpace(niche))
	if !ok {
		return NicheTemplate{}, services.Wrap(services.ErrNotFound, "prompter", "niche info", "Niche not found: "+niche, nil)
	}
	return info, nil
}

func normalizePromptOptions(opts PromptOptions) (PromptOptions, error) {
	opts.Niche = strings.TrimSpace(opts.Niche)
	opts.Topic = strings.TrimSpace(opts.Topic)
	opts.Mood = strings.ToLower(strings.TrimSpace(opts.Mood))
	opts.VisualStyle = strings.TrimSpace(opts.VisualStyle)
	keywords := opts.Keywords[:0:0]
	for _, kw := range opts.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywords = append(keywords, kw)
		}
	}
	opts.Keywords = keywords
	if err := validate.Struct(opts); err != nil {
		return opts, validationError(jobs.KindVideo, err)
	}
	return opts, nil
}
