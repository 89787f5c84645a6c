// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kidzone/internal/metrics"
	"kidzone/internal/model"
	"kidzone/internal/pkg/apperr"
)

// Clock returns the current time. Tests replace it.
type Clock func() time.Time

// lockTimeout bounds how long a request waits for another request by the same principal.
const lockTimeout = 5 * time.Second

// requireCaller rejects anonymous callers.
func requireCaller(p model.Principal) error {
	if p.IsAnonymous() {
		return apperr.New(apperr.KindUnauthenticated, "authentication required")
	}
	return nil
}

// transient wraps an unexpected storage failure.
func transient(err error, op string) error {
	return apperr.Wrap(apperr.KindTransient, err, "failed to "+op)
}

// bestEffort runs a secondary write in its own error boundary. Failures and
// panics are logged and swallowed so the primary write stands.
func bestEffort(ctx context.Context, op string, p model.Principal, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordSideEffectFailure(op)
			log.Error().Str("op", op).Str("principal", p.String()).Interface("panic", r).Msg("Side effect panicked")
		}
	}()

	if err := fn(ctx); err != nil {
		metrics.RecordSideEffectFailure(op)
		log.Warn().Err(err).Str("op", op).Str("principal", p.String()).Msg("Side effect failed")
	}
}

// clampLimit applies a default to non-positive limits and caps the rest.
func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return limit
}

// formatWait renders a remaining wait for messages.
func formatWait(d time.Duration) string {
	d = d.Round(time.Second)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
