package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"kidzone/internal/config"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

type fakeSpinAPI struct {
	mu      sync.Mutex
	calls   int
	extra   bool
	err     error
	release chan struct{}
	now     func() time.Time
}

func (f *fakeSpinAPI) Spin(context.Context) (*model.SpinResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	ts := model.TimestampNanos(f.now())
	return &model.SpinResult{RewardType: "trophies", Value: 10, ExtraSpin: f.extra, Timestamp: ts}, nil
}

func newTestSpinController(t *testing.T) (*SpinController, *fakeSpinAPI, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	api := &fakeSpinAPI{now: func() time.Time { return now }}
	ctrl := NewSpinController(api, openTestStore(t), NewQueryCache(0), config.SpinConfig{})
	ctrl.now = func() time.Time { return now }
	ctrl.suspense = 0
	return ctrl, api, &now
}

func TestSpinController_RecordsCooldown(t *testing.T) {
	ctrl, api, now := newTestSpinController(t)
	ctx := context.Background()

	assert.True(t, ctrl.State(ctx).CanSpin)

	_, err := ctrl.Spin(ctx)
	require.NoError(t, err)

	last, err := ctrl.LastSpin(ctx)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), last)

	*now = now.Add(19 * time.Minute)
	state := ctrl.State(ctx)
	assert.False(t, state.CanSpin)
	assert.Equal(t, time.Minute, state.Remaining)

	_, err = ctrl.Spin(ctx)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindRateLimited))
	assert.Equal(t, 1, api.calls, "the local check stops the call")

	*now = now.Add(time.Minute)
	assert.True(t, ctrl.State(ctx).CanSpin)
}

func TestSpinController_ExtraSpinKeepsWheelOpen(t *testing.T) {
	ctrl, api, _ := newTestSpinController(t)
	api.extra = true
	ctx := context.Background()

	res, err := ctrl.Spin(ctx)
	require.NoError(t, err)
	assert.True(t, res.ExtraSpin)

	last, err := ctrl.LastSpin(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
	assert.True(t, ctrl.State(ctx).CanSpin)
}

func TestSpinController_ServerRefusalIsReturned(t *testing.T) {
	ctrl, api, _ := newTestSpinController(t)
	api.err = apperr.SpinNotReady(60_000)

	_, err := ctrl.Spin(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Not ready yet", Classify(err).Title)
	assert.False(t, ctrl.InFlight())
}

func TestSpinController_RejectsWhileInFlight(t *testing.T) {
	ctrl, api, _ := newTestSpinController(t)
	api.release = make(chan struct{})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Spin(ctx)
		done <- err
	}()

	require.Eventually(t, ctrl.InFlight, time.Second, time.Millisecond)

	_, err := ctrl.Spin(ctx)
	assert.ErrorIs(t, err, ErrSpinInFlight)

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, api.calls)
}

func TestSpinController_WaitsForSuspense(t *testing.T) {
	api := &fakeSpinAPI{now: time.Now}
	ctrl := NewSpinController(api, openTestStore(t), nil, config.SpinConfig{Suspense: 50 * time.Millisecond})
	assert.Equal(t, 20*time.Minute, ctrl.cooldown)

	start := time.Now()
	_, err := ctrl.Spin(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSpinController_Countdown(t *testing.T) {
	ctrl, _, now := newTestSpinController(t)
	ctx := context.Background()

	require.NoError(t, ctrl.store.Put(ctx, KeyLastSpinTime, now.Add(-20*time.Minute).UnixMilli()))

	var got []time.Duration
	ctrl.Countdown(ctx, func(d time.Duration) { got = append(got, d) })
	assert.Equal(t, []time.Duration{0}, got, "an elapsed cooldown reports zero once")

	require.NoError(t, ctrl.store.Put(ctx, KeyLastSpinTime, now.UnixMilli()))
	cancelled, cancel := context.WithCancel(ctx)
	got = nil
	ctrl.Countdown(cancelled, func(d time.Duration) {
		got = append(got, d)
		cancel()
	})
	assert.Equal(t, []time.Duration{20 * time.Minute}, got)
}

func TestSpinController_StateProperty(t *testing.T) {
	ctrl, _, now := newTestSpinController(t)
	ctx := context.Background()
	base := *now

	rapid.Check(t, func(t *rapid.T) {
		elapsed := time.Duration(rapid.Int64Range(0, int64(2*time.Hour/time.Millisecond)).Draw(t, "elapsed_ms")) * time.Millisecond
		require.NoError(t, ctrl.store.Put(ctx, KeyLastSpinTime, base.UnixMilli()))
		*now = base.Add(elapsed)

		state := ctrl.State(ctx)
		if elapsed >= 20*time.Minute {
			assert.True(t, state.CanSpin)
			assert.Zero(t, state.Remaining)
		} else {
			assert.False(t, state.CanSpin)
			assert.Equal(t, 20*time.Minute-elapsed, state.Remaining)
		}
	})
}
