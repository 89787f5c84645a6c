// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"kidzone/internal/config"
	"kidzone/internal/metrics"
	"kidzone/internal/model"
)

const jobTimeout = 30 * time.Second

// Job names, also used as metric labels.
const (
	JobPendingDigest     = "pending_digest"
	JobLeaderboardWarmup = "leaderboard_warmup"
)

// PendingLister lists approvals awaiting a decision.
type PendingLister interface {
	Pending(ctx context.Context) ([]*model.UserApproval, error)
}

// DigestSender delivers the pending approval digest to admins.
type DigestSender interface {
	PendingDigest(ctx context.Context, recs []*model.UserApproval) error
}

// Warmer refreshes a cache.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Jobs holds the job dependencies. A job whose dependencies are nil is not scheduled.
type Jobs struct {
	Approvals   PendingLister
	Digest      DigestSender
	Leaderboard Warmer
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	sched gocron.Scheduler
	jobs  Jobs
}

// New creates the scheduler and registers the jobs enabled by cfg.
// A non-positive interval disables a job.
func New(cfg config.SchedulerConfig, jobs Jobs) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{sched: sched, jobs: jobs}

	if jobs.Approvals != nil && jobs.Digest != nil && cfg.PendingDigestInterval > 0 {
		if err := s.add(JobPendingDigest, cfg.PendingDigestInterval, s.pendingDigest); err != nil {
			return nil, err
		}
	}
	if jobs.Leaderboard != nil && cfg.LeaderboardWarmup > 0 {
		if err := s.add(JobLeaderboardWarmup, cfg.LeaderboardWarmup, s.jobs.Leaderboard.Warm); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) add(name string, every time.Duration, fn func(ctx context.Context) error) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() { run(name, fn) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	log.Info().Str("job", name).Dur("every", every).Msg("Job scheduled")
	return nil
}

// run executes one job run with a timeout and records the outcome.
func run(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	metrics.RecordJob(name, err)

	if err != nil {
		log.Warn().Err(err).Str("job", name).Msg("Job failed")
		return
	}
	log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("Job finished")
}

func (s *Scheduler) pendingDigest(ctx context.Context) error {
	recs, err := s.jobs.Approvals.Pending(ctx)
	if err != nil {
		return err
	}
	return s.jobs.Digest.PendingDigest(ctx, recs)
}

// JobNames returns the names of the registered jobs.
func (s *Scheduler) JobNames() []string {
	var names []string
	for _, j := range s.sched.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

// Start begins running jobs.
func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown stops the scheduler and waits for running jobs.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
