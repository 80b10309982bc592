package storage

import (
	"fmt"

	"github.com/haln/taskboard/internal/config"
)

// New creates an ArtifactStore based on the configuration.
// Parameters:
//   - cfg: storage configuration including backend type and credentials.
// Returns:
//   - ArtifactStore: initialized storage backend.
//   - error: non-nil if the backend cannot be created.
func New(cfg *config.StorageConfig) (ArtifactStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.Root)
	case "minio":
		return NewMinIOStore(&MinIOConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
		})
	case "s3":
		return NewS3Store(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage type: %q", cfg.Type)
	}
}
