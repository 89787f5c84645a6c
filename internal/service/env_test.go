package service

import (
	"sync"
	"time"

	"kidzone/internal/config"
	"kidzone/internal/game"
	"kidzone/internal/model"
	"kidzone/internal/pkg/lock"
	"kidzone/internal/wheel"
)

const testAdmin = model.Principal("admin-1")

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires every service over one memStore.
type testEnv struct {
	store       *memStore
	clock       *fakeClock
	locks       *lock.UserLock
	approval    *ApprovalService
	economy     *EconomyService
	spin        *SpinService
	activity    *ActivityService
	badges      *BadgeService
	profile     *ProfileService
	pet         *PetService
	gate        *GateService
	leaderboard *LeaderboardService
}

func testEconomyConfig() config.EconomyConfig {
	return config.EconomyConfig{
		InitialTrophies:     70,
		GameCost:            10,
		WelcomeBackReward:   20,
		WelcomeBackInterval: 24 * time.Hour,
	}
}

// fixedWheel always lands on seg.
func fixedWheel(seg wheel.Segment) *wheel.Wheel {
	w, err := wheel.New([]wheel.Segment{seg}, func(int) int { return 0 })
	if err != nil {
		panic(err)
	}
	return w
}

func newTestEnv(economyCfg config.EconomyConfig, w *wheel.Wheel) *testEnv {
	store := newMemStore()
	clock := newFakeClock()
	locks := lock.NewUserLock()
	admins := adminSet{testAdmin.String(): true}

	if w == nil {
		w = fixedWheel(wheel.Segment{Label: "10 Trophies", RewardType: wheel.RewardTrophies, Value: 10, Weight: 1})
	}

	env := &testEnv{store: store, clock: clock, locks: locks}
	env.approval = NewApprovalService(store, admins)
	env.economy = NewEconomyService(memPets{store}, memLedger{store}, locks, nil, economyCfg, "Buddy")
	env.economy.SetClock(clock.Now)
	env.badges = NewBadgeService(memBadges{store}, memActivity{store}, memSpins{store}, memProfiles{store}, memPets{store}, env.economy)
	env.badges.SetClock(clock.Now)
	env.spin = NewSpinService(memSpins{store}, memPets{store}, env.economy, w, locks, wheel.DefaultCooldown)
	env.spin.SetClock(clock.Now)
	env.spin.SetBadges(env.badges)
	env.activity = NewActivityService(memActivity{store}, memStates{store}, game.NewDefaultRegistry(), admins, nil,
		config.ActivityConfig{DefaultLimit: 20, MaxLimit: 200}, false)
	env.activity.SetClock(clock.Now)
	env.activity.SetBadges(env.badges)
	env.profile = NewProfileService(memProfiles{store}, env.activity, env.badges, config.ProfileConfig{
		MinAge: 5, MaxAge: 12, DefaultScreenTime: 120, DefaultContentFilter: model.ContentFilterMedium,
	})
	env.pet = NewPetService(memPets{store}, env.economy, locks)
	env.gate = NewGateService(memProfiles{store}, store)
	env.leaderboard = NewLeaderboardService(memPets{store}, nil)
	return env
}
