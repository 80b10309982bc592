package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces export cache entries in a shared Redis instance.
const keyPrefix = "taskboard:export:"

// RedisCache implements ResultCache on Redis with JSON-encoded snapshots.
type RedisCache struct {
	client *redis.Client
}

// RedisConfig holds connection settings for the result cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisCache creates a RedisCache and verifies connectivity.
// Parameters:
//   - cfg: Redis connection settings.
// Returns:
//   - *RedisCache: initialized cache client.
//   - error: non-nil if the server is unreachable.
func NewRedisCache(cfg *RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Get retrieves a snapshot by key. Returns ErrMiss when absent or expired.
func (c *RedisCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return &snap, nil
}

// Put stores a snapshot under key with the given TTL.
func (c *RedisCache) Put(ctx context.Context, key string, snap *Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
