package domain

import (
	"context"
	"time"
)

// BotRepository defines access methods for channel integrations.
type BotRepository interface {
	GetByID(ctx context.Context, id string) (*Bot, error)
	GetByToken(ctx context.Context, botToken string) (*Bot, error)
	ListVerified(ctx context.Context) ([]Bot, error)
	SaveWebhookSecret(ctx context.Context, botID, secret string, syncedAt time.Time) error
	UpdateChannelName(ctx context.Context, botID, channelName string) error
}

// SubscriberMetricRepository persists the per-bot subscriber time series.
type SubscriberMetricRepository interface {
	Insert(ctx context.Context, metric *SubscriberMetric) error
	// Latest returns the most recent point for the bot, or ErrNotFound when
	// the series is empty.
	Latest(ctx context.Context, botID string) (*SubscriberMetric, error)
	// ListSince returns in-window points ordered by measurement time ascending.
	ListSince(ctx context.Context, botID string, since time.Time) ([]SubscriberMetric, error)
	UpdateChurnRate(ctx context.Context, metricID string, rate float64) error
}

// PostRepository reads posts and appends their engagement snapshots.
type PostRepository interface {
	GetByID(ctx context.Context, id string) (*Post, error)
	ListPublished(ctx context.Context, botID string) ([]Post, error)
	InsertMetric(ctx context.Context, metric *PostMetric) error
}

// FinanceRepository is the read-only aggregation surface over the AI cost and
// payment tables populated outside this core. Every query takes the detected
// CostSchema so missing optional columns reduce precision instead of failing.
type FinanceRepository interface {
	DetectCostSchema(ctx context.Context) CostSchema
	CostTotals(ctx context.Context, w Window, schema CostSchema) (CostTotals, error)
	CostByModel(ctx context.Context, w Window, schema CostSchema) ([]ModelCost, error)
	CostByDay(ctx context.Context, w Window, schema CostSchema) (map[Day]float64, error)
	RevenueTotals(ctx context.Context, w Window) (RevenueTotals, error)
	RevenueByDay(ctx context.Context, w Window) (map[Day]float64, error)
	RevenueByPlan(ctx context.Context, w Window) (map[string]float64, error)
	// ProviderLookup resolves model ids to providers via the ai_models table.
	// Models without an entry are absent from the result.
	ProviderLookup(ctx context.Context, modelIDs []string) (map[string]string, error)
}

// JobRepository defines persistence for the background job queue.
type JobRepository interface {
	Enqueue(ctx context.Context, kind JobKind, entityID string) error
	// Claim atomically moves the oldest due QUEUED job to RUNNING and returns
	// it, or ErrNotFound when nothing is due.
	Claim(ctx context.Context) (*Job, error)
	MarkSucceeded(ctx context.Context, jobID string) error
	// Reschedule returns a RUNNING job to QUEUED with a later run time after a
	// retryable failure.
	Reschedule(ctx context.Context, jobID string, runAt time.Time, lastError string) error
	MarkFailed(ctx context.Context, jobID string, lastError string) error
	// RequeueStale returns RUNNING jobs untouched since cutoff to QUEUED so
	// claims orphaned by a crashed worker are redelivered. Reports how many
	// rows moved.
	RequeueStale(ctx context.Context, cutoff time.Time) (int, error)
}
