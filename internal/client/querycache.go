package client

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Query keys cached by the client.
const (
	KeyTrophies    = "trophies"
	KeyPet         = "pet"
	KeyActivity    = "activity"
	KeyLeaderboard = "leaderboard"
	KeyProfile     = "profile"
	KeyApproval    = "approval"
	KeySpinStatus  = "spin_status"
	KeyBadges      = "badges"
	KeyGameState   = "game_state"
)

type cacheEntry struct {
	value     any
	fetchedAt time.Time
}

// QueryCache caches query results in memory until they go stale or are
// invalidated by a mutation.
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewQueryCache creates a cache whose entries go stale after ttl.
// A zero ttl keeps entries until they are invalidated.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (q *QueryCache) get(key string) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[key]
	if !ok {
		return nil, false
	}
	if q.ttl > 0 && q.now().Sub(e.fetchedAt) >= q.ttl {
		delete(q.entries, key)
		return nil, false
	}
	return e.value, true
}

func (q *QueryCache) set(key string, v any) {
	q.mu.Lock()
	q.entries[key] = cacheEntry{value: v, fetchedAt: q.now()}
	q.mu.Unlock()
}

// PageKey returns the cache key for one parameterised read of key.
// Invalidating key also drops its pages.
func PageKey(key string, param int) string {
	return key + ":" + strconv.Itoa(param)
}

// Invalidate drops keys and their pages so the next Fetch goes to the server.
func (q *QueryCache) Invalidate(keys ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, k := range keys {
		delete(q.entries, k)
		prefix := k + ":"
		for existing := range q.entries {
			if strings.HasPrefix(existing, prefix) {
				delete(q.entries, existing)
			}
		}
	}
}

// Cached reports whether key holds a fresh value.
func (q *QueryCache) Cached(key string) bool {
	_, ok := q.get(key)
	return ok
}

// Fetch returns the cached value at key or loads it with fn.
// Failed loads are not cached.
func Fetch[T any](ctx context.Context, q *QueryCache, key string, fn func(context.Context) (T, error)) (T, error) {
	if v, ok := q.get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	q.set(key, v)
	return v, nil
}

// Mutate runs fn and, only if it succeeds, invalidates the dependent keys.
func Mutate[T any](ctx context.Context, q *QueryCache, fn func(context.Context) (T, error), dependents ...string) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	q.Invalidate(dependents...)
	return v, nil
}
