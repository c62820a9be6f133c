package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"reelfactory/internal/services"
)

// Local writes objects below a directory.
type Local struct {
	root    string
	baseURL string
}

// NewLocal returns a store rooted at dir. Without publicBaseURL the returned
// URLs use the file scheme.
func NewLocal(dir, publicBaseURL string) (*Local, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open local", "paths.media_dir is empty", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "storage", "open local", "create media directory", err)
	}
	return &Local{root: dir, baseURL: strings.TrimSpace(publicBaseURL)}, nil
}

// Backend implements Store.
func (l *Local) Backend() string { return "local" }

// Put writes data through a temp file and renames it into place once the
// written bytes hash to the same digest as data.
func (l *Local) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put", "create object directory", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put", "create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	want := sha256.Sum256(data)
	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		return "", services.Wrap(services.ErrTransient, "storage", "put", "write object", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", services.Wrap(services.ErrTransient, "storage", "put", "sync object", err)
	}
	if err := tmp.Close(); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put", "close object", err)
	}
	if got := hasher.Sum(nil); !bytes.Equal(got, want[:]) {
		return "", services.Wrap(services.ErrTransient, "storage", "put", "checksum mismatch", nil)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return "", services.Wrap(services.ErrTransient, "storage", "put", "move object into place", err)
	}
	return l.url(key, dst), nil
}

func (l *Local) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if clean == string(filepath.Separator) {
		return "", services.Wrap(services.ErrValidation, "storage", "put", "empty object key", nil)
	}
	return filepath.Join(l.root, clean), nil
}

func (l *Local) url(key, dst string) string {
	if l.baseURL != "" {
		return joinURL(l.baseURL, key)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(dst)}).String()
}

// Path returns where key is stored on disk.
func (l *Local) Path(key string) (string, error) {
	p, err := l.resolve(key)
	if err != nil {
		return "", fmt.Errorf("resolve key: %w", err)
	}
	return p, nil
}
