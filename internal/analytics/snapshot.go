package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/providers/telegram"
)

// ChannelAPI is the slice of the platform client the analytics jobs need.
type ChannelAPI interface {
	GetChat(ctx context.Context, chatID string) (*telegram.Chat, error)
	MessageStats(ctx context.Context, channelUsername string, messageIDs []string) ([]telegram.MessageStat, error)
}

// APIFactory builds a platform client bound to one bot's credentials.
type APIFactory func(botToken string) (ChannelAPI, error)

// SnapshotJob appends one subscriber-count point to a bot's time series.
// Each run is a new point, never an overwrite: the series records conditions
// at measurement time, so two quick runs legitimately produce two points.
type SnapshotJob struct {
	bots    domain.BotRepository
	metrics domain.SubscriberMetricRepository
	api     APIFactory
	logger  infra.Logger
	now     func() time.Time
}

// NewSnapshotJob constructs the snapshot job.
func NewSnapshotJob(bots domain.BotRepository, metrics domain.SubscriberMetricRepository, api APIFactory, logger infra.Logger) *SnapshotJob {
	return &SnapshotJob{
		bots:    bots,
		metrics: metrics,
		api:     api,
		logger:  logger,
		now:     time.Now,
	}
}

// Run fetches the current subscriber count, computes growth against the last
// point, and persists the snapshot. An unverified bot is a deliberate no-op.
// Any API or persistence failure propagates so the job queue can retry it.
func (j *SnapshotJob) Run(ctx context.Context, botID string) error {
	bot, err := j.bots.GetByID(ctx, botID)
	if err != nil {
		return fmt.Errorf("load bot %s: %w", botID, err)
	}
	if !bot.Verified {
		j.logger.Debug().Str("bot_id", botID).Msg("snapshot: skipping unverified bot")
		return nil
	}

	api, err := j.api(bot.BotToken)
	if err != nil {
		return fmt.Errorf("snapshot bot %s: %w", botID, err)
	}
	chat, err := api.GetChat(ctx, bot.ChannelID)
	if err != nil {
		return fmt.Errorf("fetch channel stats for bot %s: %w", botID, err)
	}

	current := chat.MemberCount
	previous := current // first point ever has growth zero
	prev, err := j.metrics.Latest(ctx, bot.ID)
	switch {
	case err == nil:
		previous = prev.SubscriberCount
	case errors.Is(err, domain.ErrNotFound):
	default:
		return fmt.Errorf("load previous metric for bot %s: %w", botID, err)
	}

	growth := current - previous
	metric := &domain.SubscriberMetric{
		ID:              uuid.NewString(),
		BotID:           bot.ID,
		SubscriberCount: current,
		Growth:          growth,
		ChurnRate:       0, // filled in later by the churn calculator
		MeasuredAt:      j.now(),
	}
	if err := j.metrics.Insert(ctx, metric); err != nil {
		return fmt.Errorf("persist snapshot for bot %s: %w", botID, err)
	}

	if chat.Title != "" && chat.Title != bot.ChannelName {
		if err := j.bots.UpdateChannelName(ctx, bot.ID, chat.Title); err != nil {
			return fmt.Errorf("update channel name for bot %s: %w", botID, err)
		}
	}

	j.logger.Info().
		Str("bot_id", bot.ID).
		Int("subscribers", current).
		Int("growth", growth).
		Msg("snapshot: point recorded")
	return nil
}
