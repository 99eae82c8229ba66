package refcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "occupancy:reference:v1"

// RedisStore shares snapshots between the API and the map job.
type RedisStore struct {
	redis *redis.Client
	key   string
}

// NewRedisStore creates a store under key; an empty key uses the default.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &RedisStore{redis: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("refcache: get snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("refcache: unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("refcache: marshal snapshot: %w", err)
	}
	if err := s.redis.Set(ctx, s.key, data, ttl).Err(); err != nil {
		return fmt.Errorf("refcache: set snapshot: %w", err)
	}
	return nil
}
