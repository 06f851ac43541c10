package storage

import (
	"context"
	"fmt"

	"github.com/memegen/memegen-backend/internal/config"
)

// ObjectStorage stores rendered meme images and returns a publicly
// reachable URL for each stored object.
type ObjectStorage interface {
	// Put stores data under key and returns the public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error
}

// New builds the storage backend named in the configuration
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Storage(cfg)
	case "local", "":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
