// Package cache provides the short-lived export result cache used to
// short-circuit duplicate export requests. The cache is an optimization
// only: callers treat every cache error as a miss and never let one fail an
// export.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key has no live entry.
var ErrMiss = errors.New("cache miss")

// Snapshot is the denormalized job state stored against a cache key. It is
// enough to answer a duplicate request without a job store read; the job id
// lets callers re-validate against the store.
type Snapshot struct {
	JobID       string    `json:"job_id"`
	ResultName  string    `json:"result_name"`
	RecordCount int64     `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ResultCache maps export cache keys to job snapshots with a per-entry TTL.
// There is no invalidation API; entries expire on their own and readers
// re-validate the referenced job before trusting an entry.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Snapshot, error)
	Put(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error
}
