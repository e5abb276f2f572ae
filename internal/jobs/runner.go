package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/metrics"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBaseBackoff  = 5 * time.Second
	defaultMaxAttempts  = 3
	defaultJobTimeout   = 2 * time.Minute
)

// Handler executes one job kind against a single entity.
type Handler func(ctx context.Context, entityID string) error

// Runner pulls due jobs off the queue with a bounded number of workers and
// dispatches them to registered handlers. Failures are isolated per entity:
// a handler error reschedules or terminally fails that one job and a worker
// moves on to the next claim.
type Runner struct {
	queue        domain.JobRepository
	logger       infra.Logger
	handlers     map[domain.JobKind]Handler
	concurrency  int
	pollInterval time.Duration
	baseBackoff  time.Duration
	maxAttempts  int
	jobTimeout   time.Duration
	now          func() time.Time
}

// NewRunner constructs a runner with the given worker count.
func NewRunner(queue domain.JobRepository, concurrency int, logger infra.Logger) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{
		queue:        queue,
		logger:       logger,
		handlers:     map[domain.JobKind]Handler{},
		concurrency:  concurrency,
		pollInterval: defaultPollInterval,
		baseBackoff:  defaultBaseBackoff,
		maxAttempts:  defaultMaxAttempts,
		jobTimeout:   defaultJobTimeout,
	}
}

// Register binds a handler to a job kind. Must be called before Run.
func (r *Runner) Register(kind domain.JobKind, h Handler) {
	r.handlers[kind] = h
}

// Run blocks until ctx is cancelled, processing jobs on r.concurrency workers.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Int("workers", r.concurrency).Msg("jobs: runner started")

	var wg sync.WaitGroup
	for i := 0; i < r.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.workLoop(ctx)
		}()
	}
	wg.Wait()

	r.logger.Info().Msg("jobs: runner stopped")
	return ctx.Err()
}

func (r *Runner) workLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := r.queue.Claim(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, context.Canceled) {
				r.logger.Error().Err(err).Msg("jobs: claim failed")
			}
			r.sleep(ctx)
			continue
		}

		r.handle(ctx, job)
	}
}

func (r *Runner) handle(ctx context.Context, job *domain.Job) {
	handler, ok := r.handlers[job.Kind]
	if !ok {
		r.finalize(ctx, job, fmt.Errorf("no handler for job kind %q", job.Kind))
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()

	start := nowOr(r.now)
	err := handler(jobCtx, job.EntityID)
	metrics.JobDuration.WithLabelValues(string(job.Kind)).Observe(nowOr(r.now).Sub(start).Seconds())

	if err == nil {
		metrics.JobRuns.WithLabelValues(string(job.Kind), "succeeded").Inc()
		if markErr := r.queue.MarkSucceeded(ctx, job.ID); markErr != nil {
			r.logger.Error().Err(markErr).Str("job_id", job.ID).Msg("jobs: mark succeeded failed")
		}
		return
	}

	if job.Attempts >= r.maxAttempts {
		r.finalize(ctx, job, err)
		return
	}

	delay := r.backoff(job.Attempts)
	metrics.JobRuns.WithLabelValues(string(job.Kind), "retried").Inc()
	r.logger.Warn().
		Err(err).
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("entity_id", job.EntityID).
		Int("attempt", job.Attempts).
		Dur("retry_in", delay).
		Msg("jobs: attempt failed, rescheduling")
	if reschedErr := r.queue.Reschedule(ctx, job.ID, nowOr(r.now).Add(delay), err.Error()); reschedErr != nil {
		r.logger.Error().Err(reschedErr).Str("job_id", job.ID).Msg("jobs: reschedule failed")
	}
}

// finalize records a terminal failure. The job never runs again; operators
// see the entity and cause in the log and in the FAILED queue row.
func (r *Runner) finalize(ctx context.Context, job *domain.Job, cause error) {
	metrics.JobRuns.WithLabelValues(string(job.Kind), "failed").Inc()
	r.logger.Error().
		Err(cause).
		Str("job_id", job.ID).
		Str("kind", string(job.Kind)).
		Str("entity_id", job.EntityID).
		Int("attempts", job.Attempts).
		Msg("jobs: terminally failed")
	if err := r.queue.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		r.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobs: mark failed failed")
	}
}

// backoff doubles per attempt: 5s, 10s, 20s, ...
func (r *Runner) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return r.baseBackoff << (attempt - 1)
}

func (r *Runner) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.pollInterval):
	}
}

func nowOr(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}
