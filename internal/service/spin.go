package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"kidzone/internal/metrics"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/pkg/lock"
	"kidzone/internal/repository"
	"kidzone/internal/wheel"
)

// BadgeEvaluator awards any badges a principal now qualifies for.
type BadgeEvaluator interface {
	Evaluate(ctx context.Context, p model.Principal) ([]model.Badge, error)
}

// SpinService runs the reward wheel. The cooldown checked here is authoritative;
// client-side countdowns only mirror it.
type SpinService struct {
	spins    SpinStore
	pets     PetStore
	economy  *EconomyService
	wheel    *wheel.Wheel
	locks    *lock.UserLock
	badges   BadgeEvaluator
	cooldown time.Duration
	now      Clock
}

// NewSpinService creates a new SpinService instance.
func NewSpinService(
	spins SpinStore,
	pets PetStore,
	economy *EconomyService,
	w *wheel.Wheel,
	locks *lock.UserLock,
	cooldown time.Duration,
) *SpinService {
	return &SpinService{
		spins:    spins,
		pets:     pets,
		economy:  economy,
		wheel:    w,
		locks:    locks,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// SetBadges sets the badge evaluator run after each spin.
func (s *SpinService) SetBadges(b BadgeEvaluator) {
	s.badges = b
}

// SetClock replaces the time source.
func (s *SpinService) SetClock(c Clock) {
	s.now = c
}

// Segments returns the wheel layout.
func (s *SpinService) Segments() []wheel.Segment {
	return s.wheel.Segments()
}

// Status returns the caller's spin eligibility.
func (s *SpinService) Status(ctx context.Context, caller model.Principal) (*model.SpinStatus, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.status(ctx, caller, s.now())
}

func (s *SpinService) status(ctx context.Context, p model.Principal, now time.Time) (*model.SpinStatus, error) {
	var lastNs int64
	last, err := s.spins.LastCooldownSpin(ctx, p)
	switch {
	case err == nil:
		lastNs = last.Timestamp
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, transient(err, "get last spin")
	}

	var lastMs int64
	if lastNs > 0 {
		lastMs = model.NanosToMillis(lastNs)
	}
	ok, remaining := wheel.CanSpin(lastMs, now.UnixMilli(), s.cooldown)
	return &model.SpinStatus{CanSpin: ok, RemainingMs: remaining, LastSpin: lastNs}, nil
}

// Spin draws a segment and applies its reward. A spin that grants an extra
// spin does not start the cooldown.
func (s *SpinService) Spin(ctx context.Context, caller model.Principal) (*model.SpinResult, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var result *model.SpinResult
	err := s.locks.WithLockTimeout(ctx, caller, lockTimeout, func() error {
		now := s.now()
		status, err := s.status(ctx, caller, now)
		if err != nil {
			return err
		}
		if !status.CanSpin {
			metrics.RecordRejection("spin_cooldown")
			return apperr.SpinNotReady(status.RemainingMs)
		}

		pet, err := s.economy.EnsurePet(ctx, caller)
		if err != nil {
			return err
		}

		seg := s.wheel.Draw()
		rec := &model.SpinRecord{
			ID:         uuid.NewString(),
			Principal:  caller,
			RewardType: seg.RewardType,
			Value:      seg.Value,
			Label:      seg.Label,
			ExtraSpin:  seg.ExtraSpin(),
			Timestamp:  model.TimestampNanos(now),
		}

		// The record is written first: it is what the cooldown is measured from.
		if err := s.spins.Create(ctx, rec); err != nil {
			return transient(err, "record spin")
		}

		switch seg.RewardType {
		case wheel.RewardTrophies:
			pet, err = s.economy.credit(ctx, caller, seg.Value, model.LedgerSpinReward, "Spin: "+seg.Label)
			if err != nil {
				return err
			}
		case wheel.RewardAccessory:
			pet, err = s.pets.AddAccessory(ctx, caller, seg.Label)
			if err != nil {
				return transient(err, "add accessory")
			}
		}

		next := now
		if !rec.ExtraSpin {
			next = now.Add(s.cooldown)
		}

		result = &model.SpinResult{
			Record:     *rec,
			RewardType: rec.RewardType,
			Value:      rec.Value,
			Label:      rec.Label,
			ExtraSpin:  rec.ExtraSpin,
			Balance:    pet.Trophies,
			Timestamp:  rec.Timestamp,
			NextSpinAt: model.TimestampNanos(next),
		}
		return nil
	})
	if err != nil {
		return nil, lockErr(err)
	}

	metrics.RecordSpin(result.RewardType)
	log.Info().
		Str("principal", caller.String()).
		Str("reward", result.RewardType).
		Int64("value", result.Value).
		Bool("extra_spin", result.ExtraSpin).
		Msg("Wheel spun")

	if s.badges != nil {
		bestEffort(ctx, "badges_after_spin", caller, func(ctx context.Context) error {
			_, err := s.badges.Evaluate(ctx, caller)
			return err
		})
	}

	return result, nil
}

// History returns the caller's spins, most recent first.
func (s *SpinService) History(ctx context.Context, caller model.Principal, limit int) ([]*model.SpinRecord, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	recs, err := s.spins.ListByPrincipal(ctx, caller, clampLimit(limit, 20, 100))
	if err != nil {
		return nil, transient(err, "get spin history")
	}
	if recs == nil {
		recs = []*model.SpinRecord{}
	}
	return recs, nil
}
