package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/JonMunkholm/quizadmin/internal/store"
)

// DashboardCacheKey is where the dashboard aggregates are cached.
const DashboardCacheKey = "quizadmin.dashboard.stats"

// StatsSource computes dashboard aggregates. *store.Store implements it.
type StatsSource interface {
	Dashboard(ctx context.Context) (store.DashboardStats, error)
}

// StatsCache stores serialized dashboard aggregates.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisStatsCache is a StatsCache on Redis.
type RedisStatsCache struct {
	client *redis.Client
}

// NewRedisStatsCache connects to the Redis instance at url
// (redis://[:password@]host:port/db) and pings it.
func NewRedisStatsCache(ctx context.Context, url string) (*RedisStatsCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStatsCache{client: client}, nil
}

// NewRedisStatsCacheFromClient wraps an existing client.
func NewRedisStatsCacheFromClient(client *redis.Client) *RedisStatsCache {
	return &RedisStatsCache{client: client}
}

func (c *RedisStatsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *RedisStatsCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisStatsCache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the underlying connection pool.
func (c *RedisStatsCache) Close() error { return c.client.Close() }

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (noopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopCache) Delete(context.Context, ...string) error { return nil }

// Dashboards serves dashboard aggregates, read through the cache.
type Dashboards struct {
	source StatsSource
	cache  StatsCache
	ttl    time.Duration
}

// NewDashboards creates a dashboard reader. A nil cache disables caching.
func NewDashboards(source StatsSource, cache StatsCache, ttl time.Duration) *Dashboards {
	if cache == nil {
		cache = noopCache{}
	}
	return &Dashboards{source: source, cache: cache, ttl: ttl}
}

// Get returns cached aggregates when fresh, otherwise recomputes them.
// Cache failures are logged and fall through to the database.
func (d *Dashboards) Get(ctx context.Context) (store.DashboardStats, error) {
	if b, ok, err := d.cache.Get(ctx, DashboardCacheKey); err != nil {
		slog.Warn("dashboard cache read failed", "error", err)
	} else if ok {
		var st store.DashboardStats
		if err := json.Unmarshal(b, &st); err == nil {
			return st, nil
		}
		slog.Warn("dashboard cache entry unreadable, recomputing")
	}

	st, err := d.source.Dashboard(ctx)
	if err != nil {
		return st, err
	}

	if b, err := json.Marshal(st); err == nil {
		if err := d.cache.Set(ctx, DashboardCacheKey, b, d.ttl); err != nil {
			slog.Warn("dashboard cache write failed", "error", err)
		}
	}
	return st, nil
}

// Invalidate drops the cached aggregates after a write that changes them.
func (d *Dashboards) Invalidate(ctx context.Context) {
	if d == nil {
		return
	}
	if err := d.cache.Delete(ctx, DashboardCacheKey); err != nil {
		slog.Warn("dashboard cache invalidate failed", "error", err)
	}
}
