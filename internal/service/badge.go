package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"kidzone/internal/model"
	"kidzone/internal/repository"
)

// Badge ids.
const (
	BadgeWelcome         = "welcome"
	BadgeFirstGame       = "first_game"
	BadgeGameExplorer    = "game_explorer"
	BadgeLuckySpinner    = "lucky_spinner"
	BadgeTrophyCollector = "trophy_collector"
)

// Badge thresholds.
const (
	explorerDistinctGames = 5
	luckySpinnerSpins     = 10
	collectorTrophies     = 200
)

// BadgeCatalog lists every badge that can be earned.
var BadgeCatalog = []model.Badge{
	{ID: BadgeWelcome, Name: "Welcome!", Description: "Set up your profile", Category: "milestone", Requirement: "Create a profile", RewardPoints: 10},
	{ID: BadgeFirstGame, Name: "First Game", Description: "Play your first game", Category: "games", Requirement: "Play 1 game", RewardPoints: 5},
	{ID: BadgeGameExplorer, Name: "Game Explorer", Description: "Try lots of different games", Category: "games", Requirement: "Play 5 different games", RewardPoints: 20},
	{ID: BadgeLuckySpinner, Name: "Lucky Spinner", Description: "Spin the prize wheel again and again", Category: "rewards", Requirement: "Spin the wheel 10 times", RewardPoints: 15},
	{ID: BadgeTrophyCollector, Name: "Trophy Collector", Description: "Save up a big pile of trophies", Category: "rewards", Requirement: "Hold 200 trophies", RewardPoints: 25},
}

// Progress is what badge conditions are evaluated against.
type Progress struct {
	HasProfile    bool
	GamesPlayed   int
	DistinctGames int
	Spins         int
	Trophies      int64
}

// Qualifies reports whether progress meets a badge's condition.
func (p Progress) Qualifies(badgeID string) bool {
	switch badgeID {
	case BadgeWelcome:
		return p.HasProfile
	case BadgeFirstGame:
		return p.GamesPlayed >= 1
	case BadgeGameExplorer:
		return p.DistinctGames >= explorerDistinctGames
	case BadgeLuckySpinner:
		return p.Spins >= luckySpinnerSpins
	case BadgeTrophyCollector:
		return p.Trophies >= collectorTrophies
	}
	return false
}

// BadgeService awards badges. Each badge is awarded at most once per principal.
type BadgeService struct {
	proofs   BadgeStore
	events   ActivityStore
	spins    SpinStore
	profiles ProfileStore
	pets     PetStore
	economy  *EconomyService
	now      Clock
}

// NewBadgeService creates a new BadgeService instance.
func NewBadgeService(
	proofs BadgeStore,
	events ActivityStore,
	spins SpinStore,
	profiles ProfileStore,
	pets PetStore,
	economy *EconomyService,
) *BadgeService {
	return &BadgeService{
		proofs:   proofs,
		events:   events,
		spins:    spins,
		profiles: profiles,
		pets:     pets,
		economy:  economy,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *BadgeService) SetClock(c Clock) {
	s.now = c
}

func (s *BadgeService) progress(ctx context.Context, p model.Principal) (Progress, error) {
	var pr Progress

	if _, err := s.profiles.Get(ctx, p); err == nil {
		pr.HasProfile = true
	} else if !errors.Is(err, repository.ErrNotFound) {
		return pr, err
	}

	total, distinct, err := s.events.CountGamesPlayed(ctx, p)
	if err != nil {
		return pr, err
	}
	pr.GamesPlayed, pr.DistinctGames = total, distinct

	if pr.Spins, err = s.spins.Count(ctx, p); err != nil {
		return pr, err
	}

	pet, err := s.pets.Get(ctx, p)
	switch {
	case err == nil:
		pr.Trophies = pet.Trophies
	case !errors.Is(err, repository.ErrNotFound):
		return pr, err
	}

	return pr, nil
}

// Evaluate awards every badge p qualifies for and does not yet hold, and
// returns the newly awarded ones. Reward points are credited only for a
// proof that was actually inserted.
func (s *BadgeService) Evaluate(ctx context.Context, p model.Principal) ([]model.Badge, error) {
	pr, err := s.progress(ctx, p)
	if err != nil {
		return nil, transient(err, "evaluate badges")
	}

	var awarded []model.Badge
	for _, b := range BadgeCatalog {
		if !pr.Qualifies(b.ID) {
			continue
		}

		inserted, err := s.proofs.Award(ctx, &model.BadgeProof{
			Principal: p,
			BadgeID:   b.ID,
			Timestamp: model.TimestampNanos(s.now()),
		})
		if err != nil {
			return awarded, transient(err, "award badge")
		}
		if !inserted {
			continue
		}

		log.Info().Str("principal", p.String()).Str("badge", b.ID).Msg("Badge awarded")
		awarded = append(awarded, b)

		if b.RewardPoints > 0 {
			if _, err := s.economy.Credit(ctx, p, b.RewardPoints, model.LedgerBadgeReward, "Badge: "+b.Name); err != nil {
				return awarded, err
			}
		}
	}

	return awarded, nil
}

// ListBadges returns the catalog with the caller's proofs filled in.
func (s *BadgeService) ListBadges(ctx context.Context, caller model.Principal) ([]model.EarnedBadge, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	proofs, err := s.proofs.ListByPrincipal(ctx, caller)
	if err != nil {
		return nil, transient(err, "list badges")
	}

	byID := make(map[string]*model.BadgeProof, len(proofs))
	for _, proof := range proofs {
		byID[proof.BadgeID] = proof
	}

	earned := make([]model.EarnedBadge, 0, len(BadgeCatalog))
	for _, b := range BadgeCatalog {
		earned = append(earned, model.EarnedBadge{Badge: b, Proof: byID[b.ID]})
	}
	return earned, nil
}
