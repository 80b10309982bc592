package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore implements ArtifactStore using MinIO
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// MinIOConfig holds configuration for MinIO client
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// NewMinIOStore creates a new MinIO artifact store
func NewMinIOStore(cfg *MinIOConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinIOStore{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
// Export artifacts are never public; no bucket policy is set.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}
	return nil
}

// Save stores an artifact under key.
func (s *MinIOStore) Save(ctx context.Context, key string, reader io.Reader, size int64) error {
	opts := minio.PutObjectOptions{
		ContentType: contentTypeForKey(key),
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("failed to upload artifact: %w", err)
	}
	return nil
}

// Open returns a reader for the artifact. MinIO defers errors to the first
// read, so existence is checked up front to report ErrNotExist eagerly.
func (s *MinIOStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := s.Stat(ctx, key); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return obj, nil
}

// Stat returns the artifact size in bytes.
func (s *MinIOStore) Stat(ctx context.Context, key string) (int64, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return 0, ErrNotExist
		}
		return 0, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.Size, nil
}

// Delete removes the artifact. Returns ErrNotExist if absent.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	// RemoveObject succeeds on absent keys; stat first so absence is reported
	if _, err := s.Stat(ctx, key); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete artifact: %w", err)
	}
	return nil
}

// Exists checks if the artifact exists.
func (s *MinIOStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.Stat(ctx, key)
	if err != nil {
		if err == ErrNotExist {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// contentTypeForKey picks a Content-Type from the artifact extension.
func contentTypeForKey(key string) string {
	switch {
	case strings.HasSuffix(key, ".csv"):
		return "text/csv"
	case strings.HasSuffix(key, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
