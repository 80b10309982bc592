package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	snap := &Snapshot{JobID: "job-1", ResultName: "tasks.csv", RecordCount: 10, CreatedAt: time.Now()}
	if err := c.Put(ctx, "key-1", snap, time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := c.Get(ctx, "key-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.JobID != "job-1" || got.RecordCount != 10 {
		t.Errorf("Snapshot mismatch: %+v", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	c := NewMemoryCache()
	if _, err := c.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	if err := c.Put(ctx, "short", &Snapshot{JobID: "job-1"}, time.Nanosecond); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Errorf("Expired entry should miss, got %v", err)
	}
}
