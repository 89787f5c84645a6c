package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidzone/internal/config"
	"kidzone/internal/model"
)

type fakePending struct {
	recs []*model.UserApproval
	err  error
}

func (f fakePending) Pending(context.Context) ([]*model.UserApproval, error) {
	return f.recs, f.err
}

type fakeDigest struct {
	got [][]*model.UserApproval
}

func (f *fakeDigest) PendingDigest(_ context.Context, recs []*model.UserApproval) error {
	f.got = append(f.got, recs)
	return nil
}

type fakeWarmer struct {
	calls atomic.Int32
}

func (f *fakeWarmer) Warm(context.Context) error {
	f.calls.Add(1)
	return nil
}

func TestNew_RegistersEnabledJobs(t *testing.T) {
	s, err := New(config.SchedulerConfig{PendingDigestInterval: time.Hour, LeaderboardWarmup: time.Minute}, Jobs{
		Approvals:   fakePending{},
		Digest:      &fakeDigest{},
		Leaderboard: &fakeWarmer{},
	})
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	assert.ElementsMatch(t, []string{JobPendingDigest, JobLeaderboardWarmup}, s.JobNames())
}

func TestNew_SkipsDisabledJobs(t *testing.T) {
	s, err := New(config.SchedulerConfig{PendingDigestInterval: time.Hour}, Jobs{
		Approvals:   fakePending{},
		Leaderboard: &fakeWarmer{},
	})
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	assert.Empty(t, s.JobNames())
}

func TestPendingDigest(t *testing.T) {
	digest := &fakeDigest{}
	s := &Scheduler{jobs: Jobs{
		Approvals: fakePending{recs: []*model.UserApproval{{Principal: "kid-1"}}},
		Digest:    digest,
	}}

	require.NoError(t, s.pendingDigest(context.Background()))
	require.Len(t, digest.got, 1)
	assert.Equal(t, model.Principal("kid-1"), digest.got[0][0].Principal)

	s.jobs.Approvals = fakePending{err: errors.New("db down")}
	assert.Error(t, s.pendingDigest(context.Background()))
	assert.Len(t, digest.got, 1)
}

func TestRun(t *testing.T) {
	assert.NotPanics(t, func() {
		run("test_job", func(context.Context) error { return errors.New("boom") })
	})

	var deadline bool
	run("test_job", func(ctx context.Context) error {
		_, deadline = ctx.Deadline()
		return nil
	})
	assert.True(t, deadline)
}

func TestScheduledWarmupRuns(t *testing.T) {
	warmer := &fakeWarmer{}
	s, err := New(config.SchedulerConfig{LeaderboardWarmup: 50 * time.Millisecond}, Jobs{Leaderboard: warmer})
	require.NoError(t, err)

	s.Start()
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, s.Shutdown())
	assert.GreaterOrEqual(t, warmer.calls.Load(), int32(1))
}
