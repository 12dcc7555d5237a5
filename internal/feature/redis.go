package feature

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/osm"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wegman-software/poimatch-go/internal/logger"
)

// RedisCache is a read-through cache in front of another Lookup.
// A nil backend makes it a pure cache.
type RedisCache struct {
	client  *redis.Client
	backend Lookup
	ttl     time.Duration
}

// NewRedisClient connects and pings the server
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Get().Info("Redis connected", zap.String("addr", addr), zap.Int("db", db))
	return client, nil
}

// NewRedisCache wraps backend with a Redis cache
func NewRedisCache(client *redis.Client, backend Lookup, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, backend: backend, ttl: ttl}
}

func cacheKey(kind osm.Type, id int64) string {
	if kind == "" {
		kind = osm.TypeNode
	}
	return fmt.Sprintf("feature:%s:%d", kind, id)
}

// Lookup implements Lookup. Cache errors fall through to the backend.
func (c *RedisCache) Lookup(ctx context.Context, id int64, kind osm.Type) (*Feature, error) {
	log := logger.Get()
	key := cacheKey(kind, id)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var f Feature
		if err := json.Unmarshal(data, &f); err == nil {
			return &f, nil
		}
		log.Warn("Dropping undecodable cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("Feature cache read failed", zap.String("key", key), zap.Error(err))
	}

	if c.backend == nil {
		return nil, ErrNotFound
	}
	f, err := c.backend.Lookup(ctx, id, kind)
	if err != nil {
		return nil, err
	}
	if err := c.Put(ctx, f); err != nil {
		log.Warn("Feature cache write failed", zap.String("key", key), zap.Error(err))
	}
	return f, nil
}

// Put stores a feature in the cache
func (c *RedisCache) Put(ctx context.Context, f *Feature) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal feature: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(f.Kind, f.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Warm copies every feature of a memory store into the cache
func (c *RedisCache) Warm(ctx context.Context, store *MemoryStore) (int, error) {
	n := 0
	err := store.Each(func(f *Feature) error {
		if err := c.Put(ctx, f); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}
