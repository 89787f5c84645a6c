package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"kidzone/internal/config"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/wheel"
)

// KeyLastSpinTime is the local store key for the last cooldown-starting spin, in epoch ms.
const KeyLastSpinTime = "lastSpinTime"

// DefaultSuspense is how long the wheel animates before the result is shown.
const DefaultSuspense = 3 * time.Second

// ErrSpinInFlight is returned when a spin is requested while another is running.
var ErrSpinInFlight = errors.New("spin already in progress")

// SpinAPI is the subset of the API the spin controller uses.
type SpinAPI interface {
	Spin(ctx context.Context) (*model.SpinResult, error)
}

// SpinState is the locally derived spin eligibility.
type SpinState struct {
	CanSpin   bool
	Remaining time.Duration
}

// SpinController drives the reward wheel on the client. Its cooldown check
// only hides the button early; the server decides every spin.
type SpinController struct {
	api      SpinAPI
	store    *LocalStore
	cache    *QueryCache
	cooldown time.Duration
	suspense time.Duration
	now      func() time.Time
	inFlight atomic.Bool
}

// NewSpinController creates a controller. cache may be nil. Zero durations
// in cfg fall back to the defaults.
func NewSpinController(api SpinAPI, store *LocalStore, cache *QueryCache, cfg config.SpinConfig) *SpinController {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = wheel.DefaultCooldown
	}
	if cfg.Suspense <= 0 {
		cfg.Suspense = DefaultSuspense
	}
	return &SpinController{
		api:      api,
		store:    store,
		cache:    cache,
		cooldown: cfg.Cooldown,
		suspense: cfg.Suspense,
		now:      time.Now,
	}
}

// LastSpin returns the stored last spin time in epoch ms, or zero.
func (s *SpinController) LastSpin(ctx context.Context) (int64, error) {
	var last int64
	if _, err := s.store.Get(ctx, KeyLastSpinTime, &last); err != nil {
		return 0, err
	}
	return last, nil
}

// State reports whether the wheel can be spun now. A corrupt stored value
// is treated as no previous spin.
func (s *SpinController) State(ctx context.Context) SpinState {
	last, err := s.LastSpin(ctx)
	if err != nil {
		last = 0
	}
	ok, remaining := wheel.CanSpin(last, s.now().UnixMilli(), s.cooldown)
	return SpinState{CanSpin: ok, Remaining: time.Duration(remaining) * time.Millisecond}
}

// InFlight reports whether a spin is running.
func (s *SpinController) InFlight() bool {
	return s.inFlight.Load()
}

// Spin spins the wheel. The result is returned no sooner than the suspense
// window after the call started.
func (s *SpinController) Spin(ctx context.Context) (*model.SpinResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, ErrSpinInFlight
	}
	defer s.inFlight.Store(false)

	state := s.State(ctx)
	if !state.CanSpin {
		return nil, apperr.SpinNotReady(state.Remaining.Milliseconds())
	}

	started := s.now()
	res, err := s.api.Spin(ctx)
	if err != nil {
		return nil, err
	}

	if wait := s.suspense - s.now().Sub(started); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}

	if !res.ExtraSpin {
		if err := s.store.Put(ctx, KeyLastSpinTime, model.NanosToMillis(res.Timestamp)); err != nil {
			return res, err
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(KeyTrophies, KeyPet, KeySpinStatus, KeyLeaderboard)
	}
	return res, nil
}

// Countdown calls fn once per second with the remaining cooldown until it
// reaches zero or ctx is done. The final call reports zero.
func (s *SpinController) Countdown(ctx context.Context, fn func(remaining time.Duration)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		state := s.State(ctx)
		fn(state.Remaining)
		if state.CanSpin {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
