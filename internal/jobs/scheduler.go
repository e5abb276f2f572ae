package jobs

import (
	"context"
	"time"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
)

// staleRunningAfter is how long a RUNNING job may sit untouched before the
// sweep assumes its worker died and requeues it. Well past the per-job
// timeout so an alive worker is never raced.
const staleRunningAfter = 10 * time.Minute

// Scheduler periodically enqueues collection jobs: one channel snapshot per
// verified bot and one stats job per published post. Each sweep also requeues
// jobs stranded in RUNNING by a crashed worker. Enqueue failures are logged
// per entity and never stop the sweep.
type Scheduler struct {
	bots     domain.BotRepository
	posts    domain.PostRepository
	queue    domain.JobRepository
	interval time.Duration
	logger   infra.Logger
	now      func() time.Time
}

// NewScheduler constructs the scheduler with the given sweep interval.
func NewScheduler(bots domain.BotRepository, posts domain.PostRepository, queue domain.JobRepository, interval time.Duration, logger infra.Logger) *Scheduler {
	return &Scheduler{
		bots:     bots,
		posts:    posts,
		queue:    queue,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep requeues stale claims and enqueues one round of collection jobs for
// every eligible entity.
func (s *Scheduler) Sweep(ctx context.Context) {
	requeued, err := s.queue.RequeueStale(ctx, s.now().Add(-staleRunningAfter))
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: requeue stale jobs failed")
	} else if requeued > 0 {
		s.logger.Warn().Int("jobs", requeued).Msg("scheduler: requeued stale running jobs")
	}

	bots, err := s.bots.ListVerified(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduler: list verified bots failed")
		return
	}

	enqueued := 0
	for _, bot := range bots {
		if err := s.queue.Enqueue(ctx, domain.JobKindChannelSnapshot, bot.ID); err != nil {
			s.logger.Error().Err(err).Str("bot_id", bot.ID).Msg("scheduler: enqueue snapshot failed")
			continue
		}
		enqueued++

		posts, err := s.posts.ListPublished(ctx, bot.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("bot_id", bot.ID).Msg("scheduler: list published posts failed")
			continue
		}
		for _, post := range posts {
			if err := s.queue.Enqueue(ctx, domain.JobKindPostStats, post.ID); err != nil {
				s.logger.Error().Err(err).Str("post_id", post.ID).Msg("scheduler: enqueue post stats failed")
				continue
			}
			enqueued++
		}
	}

	s.logger.Info().Int("bots", len(bots)).Int("jobs", enqueued).Msg("scheduler: sweep complete")
}
