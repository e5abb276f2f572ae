package repo

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"channelpulse/internal/domain"
)

// PostRepositoryPG implements PostRepository using PostgreSQL. Posts are
// authored elsewhere; this core only reads them and appends engagement
// snapshots into post_analytics.
type PostRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewPostRepository constructs the repository.
func NewPostRepository(pool *pgxpool.Pool) *PostRepositoryPG {
	return &PostRepositoryPG{pool: pool}
}

// GetByID returns the post or domain.ErrNotFound.
func (r *PostRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, telegram_bot_id, status, COALESCE(telegram_message_id, ''), created_at
FROM posts
WHERE id = $1;
`, id)

	var post domain.Post
	if err := row.Scan(&post.ID, &post.BotID, &post.Status, &post.TelegramMessageID, &post.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// ListPublished returns the bot's posts eligible for stats collection.
func (r *PostRepositoryPG) ListPublished(ctx context.Context, botID string) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, telegram_bot_id, status, COALESCE(telegram_message_id, ''), created_at
FROM posts
WHERE telegram_bot_id = $1 AND status = 'published' AND telegram_message_id IS NOT NULL
ORDER BY created_at;
`, botID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Post
	for rows.Next() {
		var post domain.Post
		if err := rows.Scan(&post.ID, &post.BotID, &post.Status, &post.TelegramMessageID, &post.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// InsertMetric appends one engagement snapshot.
func (r *PostRepositoryPG) InsertMetric(ctx context.Context, metric *domain.PostMetric) error {
	reactions, err := json.Marshal(emptyIfNil(metric.Reactions))
	if err != nil {
		return err
	}
	clicks, err := json.Marshal(emptyIfNil(metric.ButtonClicks))
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO post_analytics (id, post_id, telegram_message_id, views, forwards, reactions, button_clicks, measured_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`, metric.ID, metric.PostID, metric.TelegramMessageID, metric.Views, metric.Forwards, reactions, clicks, metric.MeasuredAt)
	return err
}

func emptyIfNil(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
