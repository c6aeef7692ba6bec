package debarment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps the last normalized registry download.
type SnapshotCache interface {
	Get(ctx context.Context) ([]Record, bool, error)
	Put(ctx context.Context, recs []Record) error
}

// MemorySnapshotCache holds one snapshot in process memory.
type MemorySnapshotCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	recs    []Record
	expires time.Time
}

func NewMemorySnapshotCache(ttl time.Duration) *MemorySnapshotCache {
	return &MemorySnapshotCache{ttl: ttl, now: time.Now}
}

func (c *MemorySnapshotCache) Get(_ context.Context) ([]Record, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.recs == nil || !c.now().Before(c.expires) {
		return nil, false, nil
	}
	return c.recs, true, nil
}

func (c *MemorySnapshotCache) Put(_ context.Context, recs []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = recs
	c.expires = c.now().Add(c.ttl)
	return nil
}

const snapshotKey = "screener:debarment:snapshot"

// RedisSnapshotCache shares the snapshot between replicas as one JSON
// value with an expiry.
type RedisSnapshotCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisSnapshotCache(client redis.UniversalClient, ttl time.Duration) *RedisSnapshotCache {
	return &RedisSnapshotCache{client: client, ttl: ttl}
}

func (c *RedisSnapshotCache) Get(ctx context.Context) ([]Record, bool, error) {
	raw, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get registry snapshot: %w", err)
	}
	var recs []Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, false, fmt.Errorf("decode registry snapshot: %w", err)
	}
	return recs, true, nil
}

func (c *RedisSnapshotCache) Put(ctx context.Context, recs []Record) error {
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode registry snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("store registry snapshot: %w", err)
	}
	return nil
}
