package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kidzone/internal/cache"
	"kidzone/internal/config"
	"kidzone/internal/metrics"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/pkg/lock"
	"kidzone/internal/repository"
)

// EconomyService owns the trophy balance. Every balance change runs under
// the principal's lock and is written to the ledger.
type EconomyService struct {
	pets        PetStore
	ledger      LedgerStore
	locks       *lock.UserLock
	leaderboard cache.Leaderboard
	cfg         config.EconomyConfig
	petName     string
	now         Clock
}

// NewEconomyService creates a new EconomyService instance.
func NewEconomyService(
	pets PetStore,
	ledger LedgerStore,
	locks *lock.UserLock,
	leaderboard cache.Leaderboard,
	cfg config.EconomyConfig,
	petName string,
) *EconomyService {
	if leaderboard == nil {
		leaderboard = cache.Nop{}
	}
	return &EconomyService{
		pets:        pets,
		ledger:      ledger,
		locks:       locks,
		leaderboard: leaderboard,
		cfg:         cfg,
		petName:     petName,
		now:         time.Now,
	}
}

// SetClock replaces the time source.
func (s *EconomyService) SetClock(c Clock) {
	s.now = c
}

// GameCost returns the trophies spent per game session.
func (s *EconomyService) GameCost() int64 {
	return s.cfg.GameCost
}

// EnsurePet returns the principal's pet, creating it with the starting balance on first access.
func (s *EconomyService) EnsurePet(ctx context.Context, p model.Principal) (*model.VirtualPet, error) {
	pet, created, err := s.pets.GetOrCreate(ctx, p, s.petName, s.cfg.InitialTrophies)
	if err != nil {
		return nil, transient(err, "load pet")
	}

	if created {
		log.Info().Str("principal", p.String()).Int64("trophies", pet.Trophies).Msg("Pet created")
		desc := "Starting balance"
		bestEffort(ctx, "ledger_initial", p, func(ctx context.Context) error {
			_, err := s.ledger.Create(ctx, p, pet.Trophies, model.LedgerInitial, &desc)
			return err
		})
		s.invalidateLeaderboard(ctx, p)
	}

	return pet, nil
}

// GetTrophies returns the caller's balance.
func (s *EconomyService) GetTrophies(ctx context.Context, caller model.Principal) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	pet, err := s.EnsurePet(ctx, caller)
	if err != nil {
		return 0, err
	}
	return pet.Trophies, nil
}

// UpdateGamesTrophies spends the game cost to unlock a game session and
// returns the new balance. An insufficient balance fails and changes nothing.
func (s *EconomyService) UpdateGamesTrophies(ctx context.Context, caller model.Principal) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	var balance int64
	err := s.locks.WithLockTimeout(ctx, caller, lockTimeout, func() error {
		pet, err := s.EnsurePet(ctx, caller)
		if err != nil {
			return err
		}

		if pet.Trophies < s.cfg.GameCost {
			metrics.RecordRejection("insufficient_trophies")
			return apperr.InsufficientTrophies(pet.Trophies, s.cfg.GameCost)
		}

		pet, err = s.debit(ctx, caller, s.cfg.GameCost, model.LedgerGameUnlock, "Game session unlocked")
		if err != nil {
			return err
		}
		balance = pet.Trophies
		return nil
	})
	if err != nil {
		return 0, lockErr(err)
	}

	return balance, nil
}

// WelcomeBackReward grants the welcome-back bonus at most once per interval.
func (s *EconomyService) WelcomeBackReward(ctx context.Context, caller model.Principal) (*model.WelcomeBackResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var result *model.WelcomeBackResult
	err := s.locks.WithLockTimeout(ctx, caller, lockTimeout, func() error {
		pet, err := s.EnsurePet(ctx, caller)
		if err != nil {
			return err
		}

		now := s.now()
		ok, remaining := canClaimWelcomeBack(pet.LastWelcomeBack, s.cfg.WelcomeBackInterval, now)
		if !ok {
			metrics.RecordRejection("welcome_back_cooldown")
			return apperr.New(apperr.KindRateLimited,
				"Welcome back reward already claimed, next one in %s", formatWait(remaining))
		}

		// Mark the claim first so a failure below cannot be replayed for a second grant.
		if err := s.pets.SetWelcomeBack(ctx, caller, now.Unix()); err != nil {
			return transient(err, "record welcome back")
		}

		pet, err = s.credit(ctx, caller, s.cfg.WelcomeBackReward, model.LedgerWelcomeBack, "Welcome back bonus")
		if err != nil {
			return err
		}

		result = &model.WelcomeBackResult{
			Granted: s.cfg.WelcomeBackReward,
			Balance: pet.Trophies,
			NextAt:  model.TimestampNanos(now.Add(s.cfg.WelcomeBackInterval)),
		}
		return nil
	})
	if err != nil {
		return nil, lockErr(err)
	}

	return result, nil
}

// Credit adds trophies to a principal's balance under its lock.
func (s *EconomyService) Credit(ctx context.Context, p model.Principal, amount int64, entryType, description string) (*model.VirtualPet, error) {
	var pet *model.VirtualPet
	err := s.locks.WithLockTimeout(ctx, p, lockTimeout, func() error {
		if _, err := s.EnsurePet(ctx, p); err != nil {
			return err
		}
		var err error
		pet, err = s.credit(ctx, p, amount, entryType, description)
		return err
	})
	if err != nil {
		return nil, lockErr(err)
	}
	return pet, nil
}

// credit adds trophies. The caller must hold the principal's lock.
func (s *EconomyService) credit(ctx context.Context, p model.Principal, amount int64, entryType, description string) (*model.VirtualPet, error) {
	if amount < 0 {
		return nil, apperr.New(apperr.KindInvalid, "credit amount must not be negative")
	}
	return s.adjust(ctx, p, amount, entryType, description)
}

// debit removes trophies. The caller must hold the principal's lock.
func (s *EconomyService) debit(ctx context.Context, p model.Principal, amount int64, entryType, description string) (*model.VirtualPet, error) {
	return s.adjust(ctx, p, -amount, entryType, description)
}

func (s *EconomyService) adjust(ctx context.Context, p model.Principal, delta int64, entryType, description string) (*model.VirtualPet, error) {
	pet, err := s.pets.AdjustTrophies(ctx, p, delta)
	if err != nil {
		if errors.Is(err, repository.ErrInsufficientTrophies) {
			metrics.RecordRejection("insufficient_trophies")
			current, getErr := s.pets.Get(ctx, p)
			if getErr != nil {
				return nil, apperr.New(apperr.KindInsufficientTrophies, "%s", apperr.MsgNotEnoughTrophies)
			}
			return nil, apperr.InsufficientTrophies(current.Trophies, -delta)
		}
		return nil, transient(err, "update trophies")
	}

	metrics.RecordTrophyChange(entryType, delta)
	log.Debug().
		Str("principal", p.String()).
		Int64("delta", delta).
		Int64("balance", pet.Trophies).
		Str("type", entryType).
		Msg("Trophies updated")

	// The balance has already changed; the ledger row is an audit record.
	bestEffort(ctx, "ledger_"+entryType, p, func(ctx context.Context) error {
		_, err := s.ledger.Create(ctx, p, delta, entryType, &description)
		return err
	})
	s.invalidateLeaderboard(ctx, p)

	return pet, nil
}

func (s *EconomyService) invalidateLeaderboard(ctx context.Context, p model.Principal) {
	bestEffort(ctx, "leaderboard_invalidate", p, s.leaderboard.Invalidate)
}

// canClaimWelcomeBack checks the welcome-back cooldown. last is epoch seconds, 0 for never.
func canClaimWelcomeBack(last int64, interval time.Duration, now time.Time) (bool, time.Duration) {
	if last == 0 {
		return true, 0
	}
	next := time.Unix(last, 0).Add(interval)
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

// lockErr classifies a lock acquisition failure; other errors pass through.
func lockErr(err error) error {
	if errors.Is(err, lock.ErrLockTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Wrap(apperr.KindTransient, err, "another request is still running, try again")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return fmt.Errorf("failed to update trophies: %w", err)
}
