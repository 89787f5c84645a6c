package client

import (
	"context"
	"encoding/json"

	"kidzone/internal/model"
)

// GameAPI is the subset of the API a play session uses.
type GameAPI interface {
	GetTrophies(ctx context.Context) (int64, error)
	UpdateGamesTrophies(ctx context.Context) (int64, error)
	WelcomeBackReward(ctx context.Context) (*model.WelcomeBackResult, error)
	RecordGamePlay(ctx context.Context, gameID, gameName string) (*model.ActivityEvent, error)
	SaveGameState(ctx context.Context, gameID, gameName string, state json.RawMessage) (*model.GameState, error)
	GetPet(ctx context.Context) (*model.VirtualPet, error)
	Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)
}

// Session runs the caller's game-side reads and writes through the query
// cache. Each successful mutation invalidates the reads it affects.
type Session struct {
	api   GameAPI
	cache *QueryCache
}

// NewSession creates a session over api.
func NewSession(api GameAPI, cache *QueryCache) *Session {
	return &Session{api: api, cache: cache}
}

// Cache returns the session's query cache.
func (s *Session) Cache() *QueryCache {
	return s.cache
}

// Trophies returns the cached balance.
func (s *Session) Trophies(ctx context.Context) (int64, error) {
	return Fetch(ctx, s.cache, KeyTrophies, s.api.GetTrophies)
}

// Pet returns the cached pet.
func (s *Session) Pet(ctx context.Context) (*model.VirtualPet, error) {
	return Fetch(ctx, s.cache, KeyPet, s.api.GetPet)
}

// Leaderboard returns the cached leaderboard.
func (s *Session) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return Fetch(ctx, s.cache, PageKey(KeyLeaderboard, limit), func(ctx context.Context) ([]model.LeaderboardEntry, error) {
		return s.api.Leaderboard(ctx, limit)
	})
}

// PayForGame spends the game cost.
func (s *Session) PayForGame(ctx context.Context) (int64, error) {
	return Mutate(ctx, s.cache, s.api.UpdateGamesTrophies, KeyTrophies, KeyPet, KeyLeaderboard)
}

// ClaimWelcomeBack claims the welcome-back bonus.
func (s *Session) ClaimWelcomeBack(ctx context.Context) (*model.WelcomeBackResult, error) {
	return Mutate(ctx, s.cache, s.api.WelcomeBackReward, KeyTrophies, KeyPet, KeyLeaderboard)
}

// RecordGamePlay records a finished game. Badge rewards may change the
// balance, so the trophy reads are invalidated along with the feed.
func (s *Session) RecordGamePlay(ctx context.Context, gameID, gameName string) (*model.ActivityEvent, error) {
	return Mutate(ctx, s.cache, func(ctx context.Context) (*model.ActivityEvent, error) {
		return s.api.RecordGamePlay(ctx, gameID, gameName)
	}, KeyTrophies, KeyPet, KeyActivity, KeyLeaderboard, KeyBadges)
}

// SaveGameState stores a game's state.
func (s *Session) SaveGameState(ctx context.Context, gameID, gameName string, state json.RawMessage) (*model.GameState, error) {
	return Mutate(ctx, s.cache, func(ctx context.Context) (*model.GameState, error) {
		return s.api.SaveGameState(ctx, gameID, gameName, state)
	}, KeyGameState, KeyActivity)
}
