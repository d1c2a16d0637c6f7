// Package publish uploads finished narrations and transcripts to
// S3-compatible object storage.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nadzzz/speechkit/internal/config"
)

// Uploader puts local files into one bucket.
type Uploader struct {
	client *minio.Client
	bucket string
	prefix string
}

// New connects to the object store and checks that the bucket exists.
func New(ctx context.Context, cfg config.PublishConfig) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("publish: endpoint and bucket are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init S3 client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", cfg.Bucket)
	}

	return &Uploader{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Upload stores the file at filePath under the configured prefix and returns
// its object key.
func (u *Uploader) Upload(ctx context.Context, filePath string) (string, error) {
	key := ObjectKey(u.prefix, filePath)
	info, err := u.client.FPutObject(ctx, u.bucket, key, filePath, minio.PutObjectOptions{
		ContentType:  ContentType(filepath.Ext(filePath)),
		UserMetadata: map[string]string{"uploaded-at": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	slog.Debug("uploaded object", "bucket", u.bucket, "key", key, "size", info.Size)
	return key, nil
}

// ObjectKey joins prefix and the base name of filePath with slashes.
func ObjectKey(prefix, filePath string) string {
	name := filepath.Base(filePath)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ContentType returns the MIME type stored with an artifact of the given extension.
func ContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
