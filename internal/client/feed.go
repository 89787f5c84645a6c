package client

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"kidzone/internal/model"
)

// DefaultFeedInterval is how often the admin activity feed polls.
const DefaultFeedInterval = 5 * time.Second

// ActivityAPI is the subset of the API the activity feed uses.
type ActivityAPI interface {
	GetRecentActivityEvents(ctx context.Context, limit int) ([]*model.ActivityEvent, error)
}

// ActivityFeed polls the admin activity feed.
type ActivityFeed struct {
	api      ActivityAPI
	limit    int
	interval time.Duration
}

// NewActivityFeed creates a poller that asks for limit events per poll.
func NewActivityFeed(api ActivityAPI, limit int, interval time.Duration) *ActivityFeed {
	if interval <= 0 {
		interval = DefaultFeedInterval
	}
	return &ActivityFeed{api: api, limit: limit, interval: interval}
}

// Fetch returns the latest events, most recent first.
func (f *ActivityFeed) Fetch(ctx context.Context) ([]*model.ActivityEvent, error) {
	events, err := f.api.GetRecentActivityEvents(ctx, f.limit)
	if err != nil {
		return nil, err
	}
	model.SortNewestFirst(events)
	return events, nil
}

// Run polls immediately and then on every interval until ctx is done.
// Failed polls are logged and skipped. Unauthorized stops the feed.
func (f *ActivityFeed) Run(ctx context.Context, fn func([]*model.ActivityEvent)) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		events, err := f.Fetch(ctx)
		switch {
		case err == nil:
			fn(events)
		case ctx.Err() != nil:
			return ctx.Err()
		case IsUnauthorized(err):
			return err
		default:
			log.Warn().Err(err).Msg("Activity feed poll failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
