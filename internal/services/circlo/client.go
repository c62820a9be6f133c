// Package circlo publishes finished posts to the GetCirclo platform.
package circlo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reelfactory/internal/services"
)

const (
	createPostPath        = "/api/user-preferences/recommend/create-post"
	defaultTimeout        = 30 * time.Second
	defaultRequestsPerMin = 30
	maxErrorBody          = 512
)

// Config captures the platform connection.
type Config struct {
	BaseURL           string
	Token             string
	Profile           string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// Post is one publish request.
type Post struct {
	Niche    string
	MediaURL string
	Caption  string
	Keywords []string
}

// Published is the platform's record of a created post.
type Published struct {
	ID        string   `json:"id"`
	PostType  string   `json:"postType"`
	Caption   string   `json:"caption"`
	Keywords  []string `json:"keywords"`
	CreatedAt string   `json:"createdAt"`
}

type createPostRequest struct {
	Profile     string   `json:"profile"`
	Niche       string   `json:"niche"`
	MediaType   string   `json:"media_type"`
	MediaSource string   `json:"media_source"`
	Caption     string   `json:"caption"`
	Keywords    []string `json:"keywords"`
}

type createPostResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Post    Published `json:"post"`
}

// Client calls the platform API. Requests share one limiter so concurrent
// jobs never exceed the configured rate.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLimiter replaces the request limiter.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// NewClient constructs a publisher client.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.Profile == "" {
		cfg.Profile = "general"
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultRequestsPerMin
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has a destination and credentials.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.Token != ""
}

// CreatePost publishes an image post.
func (c *Client) CreatePost(ctx context.Context, post Post) (Published, error) {
	if !c.Configured() {
		return Published{}, services.Wrap(services.ErrConfiguration, "publisher", "create post", "publisher.base_url and publisher.token are required", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Published{}, fmt.Errorf("publisher rate limit wait: %w", err)
	}

	keywords := post.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	body, err := json.Marshal(createPostRequest{
		Profile:     c.cfg.Profile,
		Niche:       post.Niche,
		MediaType:   "image",
		MediaSource: post.MediaURL,
		Caption:     post.Caption,
		Keywords:    keywords,
	})
	if err != nil {
		return Published{}, fmt.Errorf("encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+createPostPath, bytes.NewReader(body))
	if err != nil {
		return Published{}, fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Published{}, ctx.Err()
		}
		return Published{}, services.Wrap(services.ErrTransient, "publisher", "create post", "request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Published{}, services.Wrap(services.ErrTransient, "publisher", "create post", "read response", err)
	}

	var decoded createPostResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(decoded.Message)
		if detail == "" {
			detail = snippet(raw)
		}
		return Published{}, services.Wrap(markerForStatus(resp.StatusCode), "publisher", "create post",
			fmt.Sprintf("Failed to publish to GetCirclo: status %d: %s", resp.StatusCode, detail), nil)
	}
	if decodeErr != nil {
		return Published{}, services.Wrap(services.ErrExternal, "publisher", "create post", "decode response", decodeErr)
	}
	if !decoded.Success || decoded.Post.ID == "" {
		detail := strings.TrimSpace(decoded.Message)
		if detail == "" {
			detail = "platform reported failure"
		}
		return Published{}, services.Wrap(services.ErrExternal, "publisher", "create post", "Failed to publish to GetCirclo: "+detail, nil)
	}
	return decoded.Post, nil
}

// HealthCheck verifies the client has credentials.
func (c *Client) HealthCheck(context.Context) error {
	if !c.Configured() {
		return services.Wrap(services.ErrConfiguration, "publisher", "health", "publisher.base_url and publisher.token are required", nil)
	}
	return nil
}

func markerForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.ErrConfiguration
	case status == http.StatusTooManyRequests || status >= 500:
		return services.ErrTransient
	default:
		return services.ErrExternal
	}
}

func snippet(raw []byte) string {
	text := strings.TrimSpace(string(raw))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	if text == "" {
		return "empty body"
	}
	return text
}
