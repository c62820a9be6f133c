package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"reelfactory/internal/services"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollAttempts = 120
	defaultAspectRatio  = "9:16"
	imageAspectRatio    = "3:4"
)

// Config captures the runtime settings for both generators.
type Config struct {
	APIKey       string
	ImageModel   string
	VideoModel   string
	AspectRatio  string
	PollInterval time.Duration
	PollAttempts int
}

// Media is generated content ready for storage.
type Media struct {
	Data     []byte
	MIMEType string
}

// Backend is the slice of the genai API the client drives.
type Backend interface {
	GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error)
	Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error)
}

// Client generates images and scene videos.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(context.Context, time.Duration) error

	mu      sync.Mutex
	backend Backend
}

// Option customizes the client.
type Option func(*Client)

// WithBackend replaces the genai backend, mainly for tests.
func WithBackend(backend Backend) Option {
	return func(c *Client) {
		c.backend = backend
	}
}

// WithHTTPClient overrides the HTTP client handed to genai.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how the client waits between polls (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewClient constructs a client. The genai connection is opened on first use.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = defaultPollAttempts
	}
	if strings.TrimSpace(cfg.AspectRatio) == "" {
		cfg.AspectRatio = defaultAspectRatio
	}
	c := &Client{cfg: cfg, sleeper: sleepContext}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client can issue requests.
func (c *Client) Configured() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend != nil || c.cfg.APIKey != ""
}

// ImageModel returns the configured Imagen model.
func (c *Client) ImageModel() string { return c.cfg.ImageModel }

// VideoModel returns the configured Veo model.
func (c *Client) VideoModel() string { return c.cfg.VideoModel }

func (c *Client) connect(ctx context.Context, op string) (Backend, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		return c.backend, nil
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", op, "gemini.api_key is not set", nil)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "gemini", op, "create genai client", err)
	}
	c.backend = &genaiBackend{client: client}
	return c.backend, nil
}

// GenerateImage renders one portrait image for prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Media, error) {
	backend, err := c.connect(ctx, "generate image")
	if err != nil {
		return Media{}, err
	}
	resp, err := backend.GenerateImages(ctx, c.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    imageAspectRatio,
	})
	if err != nil {
		return Media{}, wrapCallError("generate image", err)
	}
	if resp == nil {
		return Media{}, services.Wrap(services.ErrExternal, "gemini", "generate image", "empty response", nil)
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := generated.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return Media{Data: generated.Image.ImageBytes, MIMEType: mime}, nil
	}
	reason := "no image returned"
	if len(resp.GeneratedImages) > 0 && resp.GeneratedImages[0] != nil && resp.GeneratedImages[0].RAIFilteredReason != "" {
		reason = "image filtered: " + resp.GeneratedImages[0].RAIFilteredReason
	}
	return Media{}, services.Wrap(services.ErrExternal, "gemini", "generate image", reason, nil)
}

// GenerateSceneVideo starts a Veo operation for prompt, polls it to
// completion and downloads the first generated video.
func (c *Client) GenerateSceneVideo(ctx context.Context, prompt string) (Media, error) {
	backend, err := c.connect(ctx, "generate video")
	if err != nil {
		return Media{}, err
	}
	op, err := backend.GenerateVideos(ctx, c.cfg.VideoModel, prompt, &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    c.cfg.AspectRatio,
	})
	if err != nil {
		return Media{}, wrapCallError("generate video", err)
	}

	op, err = c.await(ctx, backend, op)
	if err != nil {
		return Media{}, err
	}

	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0] == nil {
		return Media{}, services.Wrap(services.ErrExternal, "gemini", "generate video", "no video returned", nil)
	}
	generated := op.Response.GeneratedVideos[0]
	mime := "video/mp4"
	if generated.Video != nil && generated.Video.MIMEType != "" {
		mime = generated.Video.MIMEType
	}
	if generated.Video != nil && len(generated.Video.VideoBytes) > 0 {
		return Media{Data: generated.Video.VideoBytes, MIMEType: mime}, nil
	}
	data, err := backend.Download(ctx, generated)
	if err != nil {
		return Media{}, wrapCallError("download video", err)
	}
	if len(data) == 0 {
		return Media{}, services.Wrap(services.ErrExternal, "gemini", "download video", "empty video download", nil)
	}
	return Media{Data: data, MIMEType: mime}, nil
}

// await polls op until it is done, it reports an error, or the attempt
// budget runs out.
func (c *Client) await(ctx context.Context, backend Backend, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	if op == nil {
		return nil, services.Wrap(services.ErrExternal, "gemini", "generate video", "no operation returned", nil)
	}
	for attempt := 0; !op.Done; attempt++ {
		if attempt >= c.cfg.PollAttempts {
			return nil, services.Wrap(services.ErrTimeout, "gemini", "generate video", "Video generation timeout", nil)
		}
		if err := c.sleeper(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}
		next, err := backend.GetVideosOperation(ctx, op)
		if err != nil {
			return nil, wrapCallError("check video status", err)
		}
		if next == nil {
			return nil, services.Wrap(services.ErrExternal, "gemini", "check video status", "empty operation", nil)
		}
		op = next
		if len(op.Error) > 0 {
			break
		}
	}
	if len(op.Error) > 0 {
		return nil, services.Wrap(services.ErrExternal, "gemini", "generate video",
			fmt.Sprintf("Video generation failed: %v", op.Error), nil)
	}
	return op, nil
}

// HealthCheck verifies credentials are present without spending quota.
func (c *Client) HealthCheck(context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, "gemini", "health", "gemini.api_key is not set", nil)
	}
	return nil
}

func wrapCallError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		marker := services.ErrExternal
		switch {
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500:
			marker = services.ErrTransient
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			marker = services.ErrConfiguration
		}
		return services.Wrap(marker, "gemini", op, fmt.Sprintf("status %d", apiErr.Code), err)
	}
	return services.Wrap(services.ErrExternal, "gemini", op, "", err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
