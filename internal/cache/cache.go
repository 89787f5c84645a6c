// Package cache provides the leaderboard read cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"kidzone/internal/model"
)

// ErrMiss is returned when no cached value exists.
var ErrMiss = errors.New("cache miss")

const leaderboardKey = "kidzone:leaderboard:"

// Leaderboard caches the trophy leaderboard.
type Leaderboard interface {
	Get(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
	Set(ctx context.Context, limit int, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
	}

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// RedisLeaderboard stores leaderboard pages as JSON strings with a TTL.
type RedisLeaderboard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLeaderboard creates a leaderboard cache backed by Redis.
func NewRedisLeaderboard(client *redis.Client, ttl time.Duration) *RedisLeaderboard {
	return &RedisLeaderboard{client: client, ttl: ttl}
}

func (c *RedisLeaderboard) Get(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	raw, err := c.client.Get(ctx, leaderboardKey+strconv.Itoa(limit)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read leaderboard cache: %w", err)
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard cache: %w", err)
	}
	return entries, nil
}

func (c *RedisLeaderboard) Set(ctx context.Context, limit int, entries []model.LeaderboardEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode leaderboard: %w", err)
	}
	return c.client.Set(ctx, leaderboardKey+strconv.Itoa(limit), raw, c.ttl).Err()
}

// Invalidate drops every cached page.
func (c *RedisLeaderboard) Invalidate(ctx context.Context) error {
	var keys []string
	iter := c.client.Scan(ctx, 0, leaderboardKey+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan leaderboard keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Nop is used when no Redis is configured. Every read misses.
type Nop struct{}

func (Nop) Get(context.Context, int) ([]model.LeaderboardEntry, error) {
	return nil, ErrMiss
}

func (Nop) Set(context.Context, int, []model.LeaderboardEntry) error { return nil }

func (Nop) Invalidate(context.Context) error { return nil }
