package storage

import (
	"context"
	"fmt"
	"time"
)

// ClipStore archives uploaded audio clips
type ClipStore interface {
	PutClip(ctx context.Context, key string, contentType string, data []byte) error
	DownloadClip(ctx context.Context, key string) ([]byte, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteClip(ctx context.Context, key string) error
}

// Config holds configuration for the clip store
type Config struct {
	Backend   string // "s3", "minio" or "" to disable archival
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	URLExpiry time.Duration
}

// NewClipStore builds the configured backend. It returns nil, nil when archival is disabled.
func NewClipStore(ctx context.Context, cfg Config) (ClipStore, error) {
	if cfg.URLExpiry <= 0 {
		cfg.URLExpiry = 24 * time.Hour
	}

	switch cfg.Backend {
	case "":
		return nil, nil
	case "s3":
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		store, err := NewMinioStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// validateContentType validates that the content type is supported
func validateContentType(contentType string) error {
	validTypes := map[string]bool{
		"audio/wav":                true,
		"audio/x-wav":              true,
		"audio/wave":               true,
		"audio/mpeg":               true,
		"audio/flac":               true,
		"audio/webm":               true, // Browser MediaRecorder WebM format
		"audio/ogg":                true, // Browser MediaRecorder OGG format (fallback)
		"audio/mp4":                true,
		"application/octet-stream": true,
	}

	if !validTypes[contentType] {
		return fmt.Errorf("invalid content type: %s", contentType)
	}

	return nil
}
