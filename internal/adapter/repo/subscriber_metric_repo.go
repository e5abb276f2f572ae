package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"channelpulse/internal/domain"
)

// SubscriberMetricRepositoryPG implements SubscriberMetricRepository using
// PostgreSQL. The table is an append-only log; the only update it supports is
// back-filling the churn rate on a single row.
type SubscriberMetricRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSubscriberMetricRepository constructs the repository.
func NewSubscriberMetricRepository(pool *pgxpool.Pool) *SubscriberMetricRepositoryPG {
	return &SubscriberMetricRepositoryPG{pool: pool}
}

// Insert appends one point to the bot's series.
func (r *SubscriberMetricRepositoryPG) Insert(ctx context.Context, metric *domain.SubscriberMetric) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO channel_subscriber_metrics (id, telegram_bot_id, subscriber_count, subscriber_growth, churn_rate, measured_at)
VALUES ($1, $2, $3, $4, $5, $6);
`, metric.ID, metric.BotID, metric.SubscriberCount, metric.Growth, metric.ChurnRate, metric.MeasuredAt)
	return err
}

// Latest returns the most recent point or domain.ErrNotFound.
func (r *SubscriberMetricRepositoryPG) Latest(ctx context.Context, botID string) (*domain.SubscriberMetric, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, telegram_bot_id, subscriber_count, subscriber_growth, churn_rate, measured_at
FROM channel_subscriber_metrics
WHERE telegram_bot_id = $1
ORDER BY measured_at DESC
LIMIT 1;
`, botID)

	var m domain.SubscriberMetric
	if err := row.Scan(&m.ID, &m.BotID, &m.SubscriberCount, &m.Growth, &m.ChurnRate, &m.MeasuredAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// ListSince returns the in-window points ordered by measurement time ascending.
func (r *SubscriberMetricRepositoryPG) ListSince(ctx context.Context, botID string, since time.Time) ([]domain.SubscriberMetric, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, telegram_bot_id, subscriber_count, subscriber_growth, churn_rate, measured_at
FROM channel_subscriber_metrics
WHERE telegram_bot_id = $1 AND measured_at >= $2
ORDER BY measured_at ASC;
`, botID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.SubscriberMetric
	for rows.Next() {
		var m domain.SubscriberMetric
		if err := rows.Scan(&m.ID, &m.BotID, &m.SubscriberCount, &m.Growth, &m.ChurnRate, &m.MeasuredAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateChurnRate back-fills the computed rate on one existing point.
func (r *SubscriberMetricRepositoryPG) UpdateChurnRate(ctx context.Context, metricID string, rate float64) error {
	_, err := r.pool.Exec(ctx, `
UPDATE channel_subscriber_metrics
SET churn_rate = $2
WHERE id = $1;
`, metricID, rate)
	return err
}
