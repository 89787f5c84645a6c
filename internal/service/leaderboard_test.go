package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidzone/internal/cache"
	"kidzone/internal/model"
)

// mapCache is an in-memory cache.Leaderboard.
type mapCache struct {
	mu      sync.Mutex
	pages   map[int][]model.LeaderboardEntry
	gets    int
	hits    int
	failGet bool
}

func newMapCache() *mapCache {
	return &mapCache{pages: make(map[int][]model.LeaderboardEntry)}
}

func (c *mapCache) Get(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet {
		return nil, errors.New("redis: connection refused")
	}
	page, ok := c.pages[limit]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	return page, nil
}

func (c *mapCache) Set(_ context.Context, limit int, entries []model.LeaderboardEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[limit] = entries
	return nil
}

func (c *mapCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages = make(map[int][]model.LeaderboardEntry)
	return nil
}

func TestLeaderboardTop(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), nil)
	ctx := context.Background()

	_, err := env.economy.Credit(ctx, "ada", 50, model.LedgerSpinReward, "Spin")
	require.NoError(t, err)
	_, err = env.economy.GetTrophies(ctx, "bob")
	require.NoError(t, err)
	_, err = env.economy.Credit(ctx, "cat", 5, model.LedgerSpinReward, "Spin")
	require.NoError(t, err)

	entries, err := env.leaderboard.Top(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.Principal("ada"), entries[0].Principal)
	assert.Equal(t, int64(120), entries[0].Trophies)
	assert.Equal(t, model.Principal("cat"), entries[1].Principal)
	assert.Equal(t, 3, entries[2].Rank)

	entries, err = env.leaderboard.Top(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLeaderboardTop_CacheThrough(t *testing.T) {
	store := newMemStore()
	c := newMapCache()
	svc := NewLeaderboardService(memPets{store}, c)
	ctx := context.Background()

	_, _, err := memPets{store}.GetOrCreate(ctx, "ada", "Buddy", 70)
	require.NoError(t, err)

	first, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	second, err := svc.Top(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.hits)

	require.NoError(t, svc.Warm(ctx))
	assert.Len(t, c.pages, 1)
	assert.Contains(t, c.pages, DefaultLeaderboardSize)
}

func TestLeaderboardTop_CacheErrorFallsBack(t *testing.T) {
	store := newMemStore()
	c := newMapCache()
	c.failGet = true
	svc := NewLeaderboardService(memPets{store}, c)

	entries, err := svc.Top(context.Background(), 500)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Contains(t, c.pages, MaxLeaderboardSize)
}
