package sound

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/flightlab-io/flightlab/pkg/options"
)

// Store makes remote media available on the local filesystem.
type Store interface {
	// Fetch downloads bucket/key unless it is already cached and returns the
	// local path.
	Fetch(ctx context.Context, bucket, key string) (string, error)
}

type minioStore struct {
	client   *minio.Client
	cacheDir string
}

// NewMinIOStore returns a Store backed by the configured S3 endpoint.
func NewMinIOStore(opts *options.S3Options) (Store, error) {
	client, err := opts.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &minioStore{client: client, cacheDir: opts.CacheDir}, nil
}

func (s *minioStore) Fetch(ctx context.Context, bucket, key string) (string, error) {
	path := cachePath(s.cacheDir, bucket, key)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := s.client.FGetObject(ctx, bucket, key, path, minio.GetObjectOptions{}); err != nil {
		return "", fmt.Errorf("failed to download s3://%s/%s: %w", bucket, key, err)
	}
	return path, nil
}

func cachePath(dir, bucket, key string) string {
	return filepath.Join(dir, bucket, filepath.FromSlash(key))
}

// parseS3URL splits "s3://bucket/key". ok is false for anything else.
func parseS3URL(raw string) (bucket, key string, ok bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "s3" || u.Host == "" {
		return "", "", false
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", false
	}
	return u.Host, key, true
}
