package video

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelfactory/internal/logging"
	"reelfactory/internal/services"
	"reelfactory/internal/workflow"
)

const (
	promptSceneSeconds = 8
	promptDefaultMood  = "professional"
	promptMinDuration  = 15
)

type nicheEntry struct {
	name     string
	template workflow.NicheTemplate
}

var nicheTemplates = []nicheEntry{
	{"Tech Reviewer", workflow.NicheTemplate{
		ContentTypes:   []string{"unboxing", "product review", "comparison", "feature demo", "setup guide", "hands-on"},
		VisualStyles:   []string{"minimalist", "modern", "white_aesthetic", "professional"},
		CommonElements: []string{"product close-ups", "hands interacting", "screen displays", "tech workspace"},
		AudioElements:  []string{"unboxing sounds", "device clicks", "keyboard typing", "modern electronic music"},
	}},
	{"Foodie", workflow.NicheTemplate{
		ContentTypes:   []string{"recipe tutorial", "cooking process", "food styling", "restaurant review", "ingredient showcase"},
		VisualStyles:   []string{"warm", "appetizing", "rustic", "elegant"},
		CommonElements: []string{"ingredient close-ups", "cooking actions", "plating", "steam and sizzle"},
		AudioElements:  []string{"sizzling", "chopping", "pouring", "soft background music", "satisfied reactions"},
	}},
	{"Travel", workflow.NicheTemplate{
		ContentTypes:   []string{"destination showcase", "journey montage", "cultural experience", "landscape panorama", "adventure"},
		VisualStyles:   []string{"cinematic", "vibrant", "natural", "wanderlust"},
		CommonElements: []string{"sweeping landscapes", "local culture", "transportation", "iconic landmarks"},
		AudioElements:  []string{"ambient sounds", "local music", "nature sounds", "travel vlog narration"},
	}},
	{"Lifestyle", workflow.NicheTemplate{
		ContentTypes:   []string{"morning routine", "wellness activity", "home organization", "daily vlog", "self-care"},
		VisualStyles:   []string{"cozy", "minimalist", "white_aesthetic", "warm"},
		CommonElements: []string{"home interiors", "personal moments", "lifestyle products", "natural lighting"},
		AudioElements:  []string{"soft music", "ambient home sounds", "gentle narration", "calming background"},
	}},
	{"Fashion", workflow.NicheTemplate{
		ContentTypes:   []string{"outfit transition", "styling session", "accessory showcase", "runway walk", "wardrobe tour"},
		VisualStyles:   []string{"chic", "elegant", "trendy", "bold"},
		CommonElements: []string{"outfit details", "mirror shots", "clothing textures", "accessories"},
		AudioElements:  []string{"upbeat music", "fabric sounds", "confident footsteps", "fashion commentary"},
	}},
	{"Fitness", workflow.NicheTemplate{
		ContentTypes:   []string{"workout demo", "exercise form", "transformation", "gym environment", "nutrition prep"},
		VisualStyles:   []string{"energetic", "motivational", "dynamic", "powerful"},
		CommonElements: []string{"exercise movements", "gym equipment", "body form", "sweat and effort"},
		AudioElements:  []string{"workout music", "breathing", "equipment sounds", "motivational cues"},
	}},
	{"Beauty", workflow.NicheTemplate{
		ContentTypes:   []string{"makeup tutorial", "skincare routine", "product review", "transformation", "get ready with me"},
		VisualStyles:   []string{"glam", "soft", "bright", "elegant"},
		CommonElements: []string{"close-up face shots", "product application", "before/after", "mirror reflection"},
		AudioElements:  []string{"soft music", "product sounds", "gentle narration", "satisfying application sounds"},
	}},
	{"Gaming", workflow.NicheTemplate{
		ContentTypes:   []string{"gameplay highlight", "reaction", "tutorial", "review", "setup showcase"},
		VisualStyles:   []string{"dynamic", "vibrant", "dark_aesthetic", "neon"},
		CommonElements: []string{"screen capture", "controller close-ups", "gaming setup", "player reactions"},
		AudioElements:  []string{"game sounds", "commentary", "keyboard/controller clicks", "energetic music"},
	}},
}

// genericTemplate is used for niches without a template of their own.
var genericTemplate = workflow.NicheTemplate{
	ContentTypes:   []string{"showcase", "tutorial", "review", "behind the scenes"},
	VisualStyles:   []string{"professional", "clean", "modern"},
	CommonElements: []string{"close-ups", "wide shots", "detail shots"},
	AudioElements:  []string{"background music", "ambient sounds", "narration"},
}

type promptReply struct {
	Concept         string `json:"concept"`
	Prompt          string `json:"prompt"`
	VisualStyle     string `json:"visualStyle"`
	SuggestedScenes int    `json:"suggestedScenes"`
	Mood            string `json:"mood"`
}

// Prompter is the Video Prompter agent. It drafts scene prompts for a niche
// through the chat model.
type Prompter struct {
	llm       StoryWriter
	maxScenes int
	logger    *slog.Logger
}

// NewPrompter builds a prompter whose suggested scene counts never exceed
// maxScenes.
func NewPrompter(llm StoryWriter, maxScenes int, logger *slog.Logger) *Prompter {
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxScenes <= 0 {
		maxScenes = 5
	}
	return &Prompter{llm: llm, maxScenes: maxScenes, logger: logging.NewComponentLogger(logger, "prompter")}
}

// Niches returns the niches with templates, in display order.
func (p *Prompter) Niches() []string {
	names := make([]string, 0, len(nicheTemplates))
	for _, entry := range nicheTemplates {
		names = append(names, entry.name)
	}
	return names
}

// NicheInfo returns the template for niche. Matching ignores case.
func (p *Prompter) NicheInfo(niche string) (workflow.NicheTemplate, bool) {
	for _, entry := range nicheTemplates {
		if strings.EqualFold(entry.name, niche) {
			return entry.template, true
		}
	}
	return workflow.NicheTemplate{}, false
}

// Generate drafts one prompt.
func (p *Prompter) Generate(ctx context.Context, opts workflow.PromptOptions) (workflow.PromptIdea, error) {
	template, ok := p.NicheInfo(opts.Niche)
	if !ok {
		template = genericTemplate
	}
	mood := opts.Mood
	if mood == "" {
		mood = promptDefaultMood
	}
	style := opts.VisualStyle
	if style == "" {
		style = template.VisualStyles[0]
	}

	var reply promptReply
	if err := p.llm.GenerateJSON(ctx, prompterSystemPrompt(opts.Niche, mood, style, template), prompterUserPrompt(opts, mood, style), &reply); err != nil {
		return workflow.PromptIdea{}, services.Wrap(services.ErrExternal, "prompter", "generate", "Failed to generate video prompt", err)
	}
	prompt := strings.TrimSpace(reply.Prompt)
	if prompt == "" {
		return workflow.PromptIdea{}, services.Wrap(services.ErrExternal, "prompter", "generate", "model returned an empty prompt", nil)
	}

	scenes := reply.SuggestedScenes
	if scenes <= 0 {
		scenes = 3
	}
	scenes = min(scenes, p.maxScenes)
	return workflow.PromptIdea{
		Concept:           strings.TrimSpace(reply.Concept),
		Prompt:            prompt,
		VisualStyle:       firstNonEmpty(reply.VisualStyle, style),
		SuggestedScenes:   scenes,
		SuggestedDuration: max(scenes*promptSceneSeconds, promptMinDuration),
		Mood:              firstNonEmpty(reply.Mood, mood),
	}, nil
}

// Suggestions drafts count prompts one after another. Failed drafts are
// logged and skipped; an error is returned only when none succeeded.
func (p *Prompter) Suggestions(ctx context.Context, opts workflow.PromptOptions, count int) ([]workflow.PromptIdea, error) {
	ideas := make([]workflow.PromptIdea, 0, count)
	var lastErr error
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return ideas, err
		}
		idea, err := p.Generate(ctx, opts)
		if err != nil {
			lastErr = err
			p.logger.Warn("prompt suggestion failed",
				logging.Int("suggestion", i),
				logging.String("niche", opts.Niche),
				logging.Error(err),
				logging.String(logging.FieldEventType, "prompt_suggestion_failed"),
				logging.String(logging.FieldImpact, "fewer suggestions returned"),
			)
			continue
		}
		ideas = append(ideas, idea)
	}
	if len(ideas) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return ideas, nil
}

func prompterSystemPrompt(niche, mood, style string, t workflow.NicheTemplate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a creative video director and scriptwriter specializing in %s content for social media platforms like Instagram, TikTok, and YouTube Shorts.\n\n", niche)
	b.WriteString("Your task is to create detailed, cinematic video prompts for an AI video generation model.\n\n")
	b.WriteString("Key Requirements:\n")
	fmt.Fprintf(&b, "1. Each video scene is %d seconds long\n", promptSceneSeconds)
	b.WriteString("2. Include specific camera angles and movements\n")
	b.WriteString("3. Describe lighting and atmosphere in detail\n")
	b.WriteString("4. Include comprehensive audio descriptions (dialogue, sound effects, music)\n")
	fmt.Fprintf(&b, "5. Make it engaging and suitable for %s audience\n", niche)
	fmt.Fprintf(&b, "6. Match the %s mood/tone\n", mood)
	fmt.Fprintf(&b, "7. Use %s visual aesthetic\n", style)
	writeList(&b, "Content Types for "+niche, t.ContentTypes)
	writeList(&b, "Common Visual Elements", t.CommonElements)
	writeList(&b, "Audio Elements to Consider", t.AudioElements)
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func prompterUserPrompt(opts workflow.PromptOptions, mood, style string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a detailed video prompt for a %s video", opts.Niche)
	if opts.Topic != "" {
		fmt.Fprintf(&b, " about %q", opts.Topic)
	}
	b.WriteString(".\n\n")
	if len(opts.Keywords) > 0 {
		fmt.Fprintf(&b, "Incorporate these keywords naturally: %s\n\n", strings.Join(opts.Keywords, ", "))
	}
	b.WriteString("Output your response as a JSON object with this exact structure:\n")
	fmt.Fprintf(&b, `{
  "concept": "A brief 1-2 sentence description of the video concept",
  "prompt": "The detailed video prompt with camera angles, lighting, actions, and comprehensive audio descriptions. This should be 3-5 sentences describing an %d-second scene in vivid detail.",
  "visualStyle": %q,
  "suggestedScenes": 3,
  "mood": %q
}`, promptSceneSeconds, style, mood)
	b.WriteString("\n\nMake the prompt cinematic, specific, and optimized for AI video generation. Include audio descriptions in the format: 'Audio: [description of sounds, dialogue, music]'")
	return b.String()
}

var _ workflow.Prompter = (*Prompter)(nil)
