// Package cache stores assembled query payloads in Redis so repeated map
// refreshes do not re-run the same query against the source.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jengzang/simplegis/internal/models"
)

const keyPrefix = "simplegis:query:"

// RedisCache is a TTL-bounded payload cache
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Open connects to addr and checks the server answers
func Open(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", addr, err)
	}
	return NewRedisCache(client, ttl), nil
}

// Get returns the cached payload for key
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores body under key for the configured TTL
func (c *RedisCache) Set(ctx context.Context, key string, body []byte) error {
	return c.client.Set(ctx, key, body, c.ttl).Err()
}

// Close releases the client
func (c *RedisCache) Close() error { return c.client.Close() }

// Key derives the cache key of a request against the named source
func Key(source string, req models.QueryRequest) string {
	h := sha256.New()
	for _, s := range []string{source, req.Query, req.Type, req.Color, req.GroupBy, req.Fix} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}
