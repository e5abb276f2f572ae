package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"channelpulse/internal/domain"
)

// BotRepositoryPG implements BotRepository using PostgreSQL.
type BotRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewBotRepository constructs the repository.
func NewBotRepository(pool *pgxpool.Pool) *BotRepositoryPG {
	return &BotRepositoryPG{pool: pool}
}

const botColumns = `
id, project_id, bot_token, bot_username, channel_id, COALESCE(channel_name, ''),
verified, verified_at, COALESCE(webhook_secret, ''), last_sync_at, created_at, updated_at`

// GetByID returns the bot or domain.ErrNotFound.
func (r *BotRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Bot, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+botColumns+`
FROM telegram_bots
WHERE id = $1;
`, id)
	return scanBot(row)
}

// GetByToken resolves the bot addressed by an inbound webhook path.
func (r *BotRepositoryPG) GetByToken(ctx context.Context, botToken string) (*domain.Bot, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+botColumns+`
FROM telegram_bots
WHERE bot_token = $1;
`, botToken)
	return scanBot(row)
}

// ListVerified returns every bot eligible for data collection.
func (r *BotRepositoryPG) ListVerified(ctx context.Context) ([]domain.Bot, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+botColumns+`
FROM telegram_bots
WHERE verified = TRUE
ORDER BY created_at;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Bot
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *bot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveWebhookSecret persists the rotated secret together with the sync time.
// Called only after the platform has accepted the registration.
func (r *BotRepositoryPG) SaveWebhookSecret(ctx context.Context, botID, secret string, syncedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
UPDATE telegram_bots
SET webhook_secret = $2, last_sync_at = $3, updated_at = now()
WHERE id = $1;
`, botID, secret, syncedAt)
	return err
}

// UpdateChannelName refreshes the display name reported by the platform.
func (r *BotRepositoryPG) UpdateChannelName(ctx context.Context, botID, channelName string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE telegram_bots
SET channel_name = $2, updated_at = now()
WHERE id = $1;
`, botID, channelName)
	return err
}

func scanBot(row pgx.Row) (*domain.Bot, error) {
	var bot domain.Bot
	if err := row.Scan(
		&bot.ID,
		&bot.ProjectID,
		&bot.BotToken,
		&bot.BotUsername,
		&bot.ChannelID,
		&bot.ChannelName,
		&bot.Verified,
		&bot.VerifiedAt,
		&bot.WebhookSecret,
		&bot.LastSyncAt,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &bot, nil
}
