package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotExist is returned when an artifact key has no backing object.
// Callers that tolerate absence (the retention sweeper) match it with
// errors.Is.
var ErrNotExist = errors.New("artifact does not exist")

// ArtifactStore defines the interface for export artifact storage.
// Keys use forward slashes regardless of backend; one artifact per job.
type ArtifactStore interface {
	// Save stores an artifact under key, replacing any existing object.
	Save(ctx context.Context, key string, reader io.Reader, size int64) error

	// Open returns a reader for the artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Stat returns the artifact size in bytes.
	Stat(ctx context.Context, key string) (int64, error)

	// Delete removes the artifact. Returns ErrNotExist if absent.
	Delete(ctx context.Context, key string) error

	// Exists checks if the artifact exists.
	Exists(ctx context.Context, key string) (bool, error)
}

// DirPruner is implemented by backends with real directories. The retention
// sweeper uses it to remove storage subdirectories emptied by a sweep.
type DirPruner interface {
	PruneEmptyDirs(ctx context.Context) (int, error)
}
