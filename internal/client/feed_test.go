package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

type fakeActivityAPI struct {
	mu     sync.Mutex
	polls  int
	events []*model.ActivityEvent
	errs   []error
}

func (f *fakeActivityAPI) GetRecentActivityEvents(_ context.Context, limit int) ([]*model.ActivityEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([]*model.ActivityEvent, len(f.events))
	copy(out, f.events)
	return out, nil
}

func TestActivityFeed_FetchNewestFirst(t *testing.T) {
	api := &fakeActivityAPI{events: []*model.ActivityEvent{{ID: 1}, {ID: 3}, {ID: 2}}}
	feed := NewActivityFeed(api, 10, 0)
	assert.Equal(t, DefaultFeedInterval, feed.interval)

	events, err := feed.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{events[0].ID, events[1].ID, events[2].ID})
}

func TestActivityFeed_RunSkipsFailedPolls(t *testing.T) {
	api := &fakeActivityAPI{
		events: []*model.ActivityEvent{{ID: 1}},
		errs:   []error{errors.New("network down")},
	}
	feed := NewActivityFeed(api, 10, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []*model.ActivityEvent, 1)
	go feed.Run(ctx, func(events []*model.ActivityEvent) {
		select {
		case received <- events:
		default:
		}
	})

	select {
	case events := <-received:
		assert.Len(t, events, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("feed never delivered events")
	}
}

func TestActivityFeed_StopsWhenUnauthorized(t *testing.T) {
	api := &fakeActivityAPI{errs: []error{apperr.Unauthorized("view activity")}}
	feed := NewActivityFeed(api, 10, time.Millisecond)

	err := feed.Run(context.Background(), func([]*model.ActivityEvent) {
		t.Fatal("no events expected")
	})
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, api.polls)
}

func TestActivityFeed_StopsOnCancel(t *testing.T) {
	api := &fakeActivityAPI{}
	feed := NewActivityFeed(api, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := feed.Run(ctx, func([]*model.ActivityEvent) {
		calls++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
