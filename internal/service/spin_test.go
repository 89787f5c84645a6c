package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
	"kidzone/internal/wheel"
)

var extraSpinSegment = wheel.Segment{Label: "Extra Spin", RewardType: wheel.RewardExtraSpin, Weight: 1}

func TestSpin_TrophyRewardStartsCooldown(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), nil)
	ctx := context.Background()

	res, err := env.spin.Spin(ctx, "kid")
	require.NoError(t, err)
	assert.Equal(t, wheel.RewardTrophies, res.RewardType)
	assert.Equal(t, int64(80), res.Balance)
	assert.False(t, res.ExtraSpin)
	assert.Equal(t, model.TimestampNanos(env.clock.Now()), res.Timestamp)
	assert.Equal(t, model.TimestampNanos(env.clock.Now().Add(20*time.Minute)), res.NextSpinAt)

	_, err = env.spin.Spin(ctx, "kid")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindRateLimited))
	assert.True(t, strings.Contains(err.Error(), "cannot be spun yet"))
	assert.Equal(t, int64(80), env.store.balance("kid"), "a refused spin pays nothing")
}

func TestSpin_NineteenMinutesScenario(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), nil)
	ctx := context.Background()

	_, err := env.spin.Spin(ctx, "kid")
	require.NoError(t, err)

	env.clock.Advance(19 * time.Minute)
	status, err := env.spin.Status(ctx, "kid")
	require.NoError(t, err)
	assert.False(t, status.CanSpin)
	assert.Equal(t, int64(60_000), status.RemainingMs)

	env.clock.Advance(time.Minute)
	status, err = env.spin.Status(ctx, "kid")
	require.NoError(t, err)
	assert.True(t, status.CanSpin)

	_, err = env.spin.Spin(ctx, "kid")
	assert.NoError(t, err)
}

func TestSpin_ExtraSpinSkipsCooldown(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), fixedWheel(extraSpinSegment))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := env.spin.Spin(ctx, "kid")
		require.NoError(t, err)
		assert.True(t, res.ExtraSpin)
		assert.Equal(t, res.Timestamp, res.NextSpinAt)
	}

	status, err := env.spin.Status(ctx, "kid")
	require.NoError(t, err)
	assert.True(t, status.CanSpin)
	assert.Zero(t, status.LastSpin)
}

func TestSpin_AccessoryReward(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), fixedWheel(wheel.Segment{Label: "Party Hat", RewardType: wheel.RewardAccessory, Weight: 1}))
	ctx := context.Background()

	res, err := env.spin.Spin(ctx, "kid")
	require.NoError(t, err)
	assert.Equal(t, int64(70), res.Balance)

	pet, err := env.pet.GetPet(ctx, "kid")
	require.NoError(t, err)
	assert.Equal(t, []string{"Party Hat"}, pet.Accessories)
}

func TestSpin_HistoryNewestFirst(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := env.spin.Spin(ctx, "kid")
		require.NoError(t, err)
		env.clock.Advance(21 * time.Minute)
	}

	history, err := env.spin.History(ctx, "kid", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Greater(t, history[0].Timestamp, history[1].Timestamp)
	assert.Greater(t, history[1].Timestamp, history[2].Timestamp)

	history, err = env.spin.History(ctx, "kid", 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSpin_LuckySpinnerBadgeAfterTenSpins(t *testing.T) {
	env := newTestEnv(testEconomyConfig(), fixedWheel(extraSpinSegment))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := env.spin.Spin(ctx, "kid")
		require.NoError(t, err)
	}

	badges, err := env.badges.ListBadges(ctx, "kid")
	require.NoError(t, err)
	earned := map[string]bool{}
	for _, b := range badges {
		earned[b.ID] = b.Proof != nil
	}
	assert.True(t, earned[BadgeLuckySpinner])
	assert.False(t, earned[BadgeWelcome])
	assert.Equal(t, int64(70+15), env.store.balance("kid"))

	// An eleventh spin does not pay the badge again.
	_, err = env.spin.Spin(ctx, "kid")
	require.NoError(t, err)
	assert.Equal(t, int64(70+15), env.store.balance("kid"))
}

// Property: with any mix of extra and regular spins, only regular spins start
// the cooldown and a spin right after an extra spin is allowed.
func TestExtraSpinExemptionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		extras := rapid.SliceOfN(rapid.Bool(), 1, 12).Draw(t, "extra")
		idx := 0
		segments := []wheel.Segment{
			{Label: "5 Trophies", RewardType: wheel.RewardTrophies, Value: 5, Weight: 1},
			extraSpinSegment,
		}
		w, err := wheel.New(segments, func(int) int {
			roll := 0
			if extras[idx%len(extras)] {
				roll = 1
			}
			idx++
			return roll
		})
		if err != nil {
			t.Fatalf("wheel: %v", err)
		}

		env := newTestEnv(testEconomyConfig(), w)
		ctx := context.Background()

		for i, extra := range extras {
			res, err := env.spin.Spin(ctx, "kid")
			if err != nil {
				t.Fatalf("spin %d refused: %v", i, err)
			}
			if res.ExtraSpin != extra {
				t.Fatalf("spin %d: extra=%v, want %v", i, res.ExtraSpin, extra)
			}

			status, err := env.spin.Status(ctx, "kid")
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if extra && !status.CanSpin {
				t.Fatalf("extra spin started a cooldown")
			}
			if !extra && status.CanSpin {
				t.Fatalf("regular spin did not start a cooldown")
			}
			if !status.CanSpin {
				env.clock.Advance(wheel.DefaultCooldown)
			}
		}
	})
}
