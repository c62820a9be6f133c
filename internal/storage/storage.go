package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"reelfactory/internal/config"
	"reelfactory/internal/services"
)

// Store persists media objects.
type Store interface {
	// Put writes data under key and returns the object's public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Backend names the implementation for health output.
	Backend() string
}

// New builds the backend selected by cfg.Storage.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return NewS3(ctx, cfg.Storage)
	case config.StorageLocal, "":
		return NewLocal(cfg.Paths.MediaDir, cfg.Storage.PublicBaseURL)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "select backend",
			fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), nil)
	}
}

// ObjectKey builds a collision-free key such as
// "posts/<job>/3-<uuid>.png".
func ObjectKey(prefix, jobID, name, contentType string) string {
	base := strings.Trim(strings.TrimSpace(name), "/")
	if base == "" {
		base = "media"
	}
	file := fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ExtensionFor(contentType))
	return path.Join(strings.Trim(prefix, "/"), jobID, file)
}

// ExtensionFor maps the media types the generators return to file
// extensions.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
