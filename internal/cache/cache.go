// Package cache is a read-through JSON cache for dashboard responses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dealflow/dealflow-api/pkg/logger"
	"github.com/dealflow/dealflow-api/pkg/metrics"
)

// Cache stores JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the cached value into dst; ok is false on a miss.
	Get(ctx context.Context, key string, dst interface{}) (ok bool, err error)
	Set(ctx context.Context, key string, v interface{}) error
	// InvalidatePrefix drops every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, interface{}) error         { return nil }
func (Nop) InvalidatePrefix(context.Context, string) error         { return nil }

// Redis keeps entries for a fixed TTL under a namespace prefix.
type Redis struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
}

func NewRedis(client *redis.Client, namespace string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = "dash:"
	}
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.namespace+key, raw, r.ttl).Err()
}

func (r *Redis) InvalidatePrefix(ctx context.Context, prefix string) error {
	iter := r.client.Scan(ctx, 0, r.namespace+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

// Load returns the cached value for key, or computes, stores and returns it.
// Cache failures are logged and counted; they never fail the request.
func Load[T any](ctx context.Context, c Cache, key string, compute func() (T, error)) (T, error) {
	var cached T
	ok, err := c.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.DashboardCache.WithLabelValues("error").Inc()
		logger.With("key", key).Warnf("cache get failed: %v", err)
	case ok:
		metrics.DashboardCache.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.DashboardCache.WithLabelValues("miss").Inc()
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if err := c.Set(ctx, key, v); err != nil {
		logger.With("key", key).Warnf("cache set failed: %v", err)
	}
	return v, nil
}
