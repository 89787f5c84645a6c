package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"kidzone/internal/cache"
	"kidzone/internal/config"
	"kidzone/internal/game"
	"kidzone/internal/metrics"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/repository"
)

// ActivityService records gameplay and lifecycle events and serves the admin feed.
type ActivityService struct {
	events       ActivityStore
	states       GameStateStore
	games        *game.Registry
	admins       AdminPolicy
	badges       BadgeEvaluator
	leaderboard  cache.Leaderboard
	cfg          config.ActivityConfig
	allowUnknown bool
	now          Clock
}

// NewActivityService creates a new ActivityService instance.
func NewActivityService(
	events ActivityStore,
	states GameStateStore,
	games *game.Registry,
	admins AdminPolicy,
	leaderboard cache.Leaderboard,
	cfg config.ActivityConfig,
	allowUnknown bool,
) *ActivityService {
	if leaderboard == nil {
		leaderboard = cache.Nop{}
	}
	return &ActivityService{
		events:       events,
		states:       states,
		games:        games,
		admins:       admins,
		leaderboard:  leaderboard,
		cfg:          cfg,
		allowUnknown: allowUnknown,
		now:          time.Now,
	}
}

// SetBadges sets the badge evaluator run after each game play.
func (s *ActivityService) SetBadges(b BadgeEvaluator) {
	s.badges = b
}

// SetClock replaces the time source.
func (s *ActivityService) SetClock(c Clock) {
	s.now = c
}

// Games returns the playable game catalog.
func (s *ActivityService) Games() []game.Game {
	return s.games.List()
}

func (s *ActivityService) resolveGame(gameID, gameName string) (game.Game, error) {
	g, err := s.games.Resolve(gameID, gameName, s.allowUnknown)
	if err != nil {
		return game.Game{}, apperr.Wrap(apperr.KindInvalid, err, "cannot play "+gameID)
	}
	return g, nil
}

// RecordGamePlay appends a game_played event. Badge evaluation and the
// leaderboard refresh that follow are best-effort.
func (s *ActivityService) RecordGamePlay(ctx context.Context, caller model.Principal, gameID, gameName string) (*model.ActivityEvent, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	g, err := s.resolveGame(gameID, gameName)
	if err != nil {
		return nil, err
	}

	event, err := s.appendEvent(ctx, &model.ActivityEvent{
		Type:      model.ActivityGamePlayed,
		GameID:    g.ID,
		GameName:  g.Name,
		Principal: caller,
		Timestamp: model.TimestampNanos(s.now()),
	})
	if err != nil {
		return nil, err
	}

	if s.badges != nil {
		bestEffort(ctx, "badges_after_game", caller, func(ctx context.Context) error {
			_, err := s.badges.Evaluate(ctx, caller)
			return err
		})
	}
	bestEffort(ctx, "leaderboard_invalidate", caller, s.leaderboard.Invalidate)

	return event, nil
}

// RecordUserCreated appends a user_created event.
func (s *ActivityService) RecordUserCreated(ctx context.Context, p model.Principal) (*model.ActivityEvent, error) {
	return s.appendEvent(ctx, &model.ActivityEvent{
		Type:      model.ActivityUserCreated,
		Principal: p,
		Timestamp: model.TimestampNanos(s.now()),
	})
}

func (s *ActivityService) appendEvent(ctx context.Context, e *model.ActivityEvent) (*model.ActivityEvent, error) {
	stored, err := s.events.Append(ctx, e)
	if err != nil {
		return nil, transient(err, "record activity")
	}

	metrics.RecordActivity(string(stored.Type))
	log.Debug().
		Int64("id", stored.ID).
		Str("type", string(stored.Type)).
		Str("principal", stored.Principal.String()).
		Str("game_id", stored.GameID).
		Msg("Activity recorded")

	return stored, nil
}

// GetRecentActivityEvents returns the latest events, most recent first. Admin-only.
// limit is clamped to [1, max]; non-positive means the default.
func (s *ActivityService) GetRecentActivityEvents(ctx context.Context, caller model.Principal, limit int) ([]*model.ActivityEvent, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if !s.admins.IsAdmin(caller.String()) {
		return nil, apperr.Unauthorized("view activity")
	}

	events, err := s.events.Recent(ctx, s.ClampLimit(limit))
	if err != nil {
		return nil, transient(err, "get activity")
	}
	if events == nil {
		events = []*model.ActivityEvent{}
	}

	model.SortNewestFirst(events)
	return events, nil
}

// ClampLimit applies the feed's default and maximum.
func (s *ActivityService) ClampLimit(limit int) int {
	return clampLimit(limit, s.cfg.DefaultLimit, s.cfg.MaxLimit)
}

// SaveGameState stores a game's state. The game_played audit event that
// follows runs in its own error boundary: if it fails the save still succeeds.
func (s *ActivityService) SaveGameState(ctx context.Context, caller model.Principal, gameID, gameName string, state json.RawMessage) (*model.GameState, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	g, err := s.resolveGame(gameID, gameName)
	if err != nil {
		return nil, err
	}
	if len(state) == 0 || !json.Valid(state) {
		return nil, apperr.New(apperr.KindInvalid, "game state must be valid JSON")
	}

	saved, err := s.states.Upsert(ctx, &model.GameState{
		Principal: caller,
		GameID:    g.ID,
		GameName:  g.Name,
		State:     state,
	})
	if err != nil {
		return nil, transient(err, "save game state")
	}

	bestEffort(ctx, "audit_game_played", caller, func(ctx context.Context) error {
		_, err := s.RecordGamePlay(ctx, caller, g.ID, g.Name)
		return err
	})

	return saved, nil
}

// GetGameState returns the caller's saved state for a game.
func (s *ActivityService) GetGameState(ctx context.Context, caller model.Principal, gameID string) (*model.GameState, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	gs, err := s.states.Get(ctx, caller, gameID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no saved state for %s", gameID)
		}
		return nil, transient(err, "get game state")
	}
	return gs, nil
}
