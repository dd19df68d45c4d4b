// Package storage persists uploaded media on the local filesystem or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"postline/internal/config"
)

// ErrNotFound is returned when a key has no stored object.
var ErrNotFound = errors.New("storage: object not found")

// Storage stores media objects under slash separated keys such as
// "posts/2f1c.png".
type Storage interface {
	// Save stores r under key. size is -1 when unknown.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns the object for key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL is the public address clients use to fetch key.
	URL(key string) string
}

// New builds the backend selected by STORAGE_BACKEND.
func New(ctx context.Context, cfg *config.Config) (Storage, error) {
	switch cfg.StorageBackend {
	case "", "local":
		return NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	case "s3":
		return NewS3Storage(ctx, S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3Endpoint != "",
			MediaURL:        cfg.MediaURL,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.StorageBackend)
	}
}

func joinURL(base, key string) string {
	if base == "" {
		base = "/media/"
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(key, "/")
}
