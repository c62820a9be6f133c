package gemini

import (
	"context"

	"google.golang.org/genai"
)

// genaiBackend adapts *genai.Client to Backend.
type genaiBackend struct {
	client *genai.Client
}

func (b *genaiBackend) GenerateImages(ctx context.Context, model, prompt string, cfg *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	return b.client.Models.GenerateImages(ctx, model, prompt, cfg)
}

func (b *genaiBackend) GenerateVideos(ctx context.Context, model, prompt string, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	return b.client.Models.GenerateVideos(ctx, model, prompt, nil, cfg)
}

func (b *genaiBackend) GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation) (*genai.GenerateVideosOperation, error) {
	return b.client.Operations.GetVideosOperation(ctx, op, nil)
}

func (b *genaiBackend) Download(ctx context.Context, video *genai.GeneratedVideo) ([]byte, error) {
	return b.client.Files.Download(ctx, genai.NewDownloadURIFromGeneratedVideo(video), nil)
}
