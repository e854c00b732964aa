// Package cache provides the Redis client and the category tree cache
// behind GET /info. A nil cache or nil client behaves as a permanent miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quicksell/internal/logger"
	"quicksell/internal/metrics"
	"quicksell/internal/tree"
)

const (
	// treeKey is the Redis key of the serialized category tree.
	treeKey = "quicksell:categories:tree"

	// DefaultTreeTTL is how long a cached tree stays valid.
	DefaultTreeTTL = 10 * time.Minute
)

// Connect creates a Redis client and verifies the connection with a ping.
func Connect(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	logger.Get().Infow("redis connected", "addr", addr)
	return client, nil
}

// CategoryCache stores the nested category tree.
type CategoryCache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *metrics.Collector
}

// NewCategoryCache creates a cache backed by client. client and collector may be nil.
func NewCategoryCache(client *redis.Client, ttl time.Duration, collector *metrics.Collector) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultTreeTTL
	}
	return &CategoryCache{client: client, ttl: ttl, metrics: collector}
}

func (c *CategoryCache) enabled() bool {
	return c != nil && c.client != nil
}

// GetTree returns the cached tree. Errors are logged and reported as a miss.
func (c *CategoryCache) GetTree(ctx context.Context) (tree.Nested, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.client.Get(ctx, treeKey).Bytes()
	if errors.Is(err, redis.Nil) {
		c.metrics.RecordCache(false)
		return nil, false
	}
	if err != nil {
		logger.Get().Warnw("category cache get error", "error", err)
		c.metrics.RecordCache(false)
		return nil, false
	}

	var nested tree.Nested
	if err := json.Unmarshal(raw, &nested); err != nil {
		logger.Get().Warnw("category cache decode error", "error", err)
		c.metrics.RecordCache(false)
		return nil, false
	}
	c.metrics.RecordCache(true)
	return nested, true
}

// SetTree stores nested with the configured TTL.
func (c *CategoryCache) SetTree(ctx context.Context, nested tree.Nested) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(nested)
	if err != nil {
		logger.Get().Warnw("category cache encode error", "error", err)
		return
	}
	if err := c.client.Set(ctx, treeKey, raw, c.ttl).Err(); err != nil {
		logger.Get().Warnw("category cache set error", "error", err)
	}
}

// Invalidate drops the cached tree. Called after every structural change.
func (c *CategoryCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Del(ctx, treeKey).Err(); err != nil {
		logger.Get().Warnw("category cache invalidate error", "error", err)
	}
}
