package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache implements ResultCache in process memory. Used when Redis is
// not configured and in tests. Expired entries are dropped lazily on read.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get retrieves a snapshot by key. Returns ErrMiss when absent or expired.
func (c *MemoryCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, ErrMiss
	}

	snap := entry.snap
	return &snap, nil
}

// Put stores a snapshot under key with the given TTL.
func (c *MemoryCache) Put(_ context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[key] = memoryEntry{
		snap:      *snap,
		expiresAt: time.Now().Add(ttl),
	}
	c.mu.Unlock()
	return nil
}
