package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/memegen/memegen-backend/internal/config"
)

// LocalStorage writes objects to a directory on disk. Intended for
// development; the public URL assumes the directory is served statically.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates a disk-backed object store
func NewLocalStorage(cfg config.StorageConfig) (*LocalStorage, error) {
	dir := cfg.LocalDir
	if dir == "" {
		dir = "./data/memes"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = "/static/memes"
	}

	return &LocalStorage{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes data under key and returns its public URL
func (l *LocalStorage) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	return l.baseURL + "/" + key, nil
}

// Delete removes the object stored under key
func (l *LocalStorage) Delete(_ context.Context, key string) error {
	path := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
