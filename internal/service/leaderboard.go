package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"kidzone/internal/cache"
	"kidzone/internal/model"
)

// Leaderboard page sizes.
const (
	DefaultLeaderboardSize = 10
	MaxLeaderboardSize     = 50
)

// LeaderboardService serves the trophy leaderboard through the cache.
type LeaderboardService struct {
	pets  PetStore
	cache cache.Leaderboard
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(pets PetStore, c cache.Leaderboard) *LeaderboardService {
	if c == nil {
		c = cache.Nop{}
	}
	return &LeaderboardService{pets: pets, cache: c}
}

// Top returns the top principals by trophies.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit = clampLimit(limit, DefaultLeaderboardSize, MaxLeaderboardSize)

	entries, err := s.cache.Get(ctx, limit)
	if err == nil {
		return entries, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn().Err(err).Msg("Leaderboard cache read failed")
	}

	entries, err = s.pets.TopByTrophies(ctx, limit)
	if err != nil {
		return nil, transient(err, "get leaderboard")
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}

	if err := s.cache.Set(ctx, limit, entries); err != nil {
		log.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return entries, nil
}

// Warm refreshes the default page.
func (s *LeaderboardService) Warm(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx); err != nil {
		return err
	}
	_, err := s.Top(ctx, DefaultLeaderboardSize)
	return err
}
