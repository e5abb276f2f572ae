package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
)

// PostStatsJob appends one engagement snapshot for a published post. Like the
// channel snapshot, every run is a new time point.
type PostStatsJob struct {
	posts  domain.PostRepository
	bots   domain.BotRepository
	api    APIFactory
	logger infra.Logger
	now    func() time.Time
}

// NewPostStatsJob constructs the post analytics job.
func NewPostStatsJob(posts domain.PostRepository, bots domain.BotRepository, api APIFactory, logger infra.Logger) *PostStatsJob {
	return &PostStatsJob{
		posts:  posts,
		bots:   bots,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// Run fetches views, forwards, reactions, and button clicks for the post and
// appends a metric row. Unpublished posts, posts without a platform message
// id, and unverified owning bots are deliberate no-ops.
func (j *PostStatsJob) Run(ctx context.Context, postID string) error {
	post, err := j.posts.GetByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", postID, err)
	}
	if !post.Publishable() {
		j.logger.Debug().Str("post_id", postID).Str("status", string(post.Status)).Msg("post stats: skipping unpublished post")
		return nil
	}

	bot, err := j.bots.GetByID(ctx, post.BotID)
	if err != nil {
		return fmt.Errorf("load bot for post %s: %w", postID, err)
	}
	if !bot.Verified {
		j.logger.Debug().Str("post_id", postID).Str("bot_id", bot.ID).Msg("post stats: skipping unverified bot")
		return nil
	}

	api, err := j.api(bot.BotToken)
	if err != nil {
		return fmt.Errorf("post stats for %s: %w", postID, err)
	}
	stats, err := api.MessageStats(ctx, channelUsername(bot), []string{post.TelegramMessageID})
	if err != nil {
		return fmt.Errorf("fetch stats for post %s: %w", postID, err)
	}
	if len(stats) == 0 || stats[0].NotFound {
		j.logger.Warn().Str("post_id", postID).Msg("post stats: message not found on platform")
		return nil
	}

	stat := stats[0]
	metric := &domain.PostMetric{
		ID:                uuid.NewString(),
		PostID:            post.ID,
		TelegramMessageID: post.TelegramMessageID,
		Views:             stat.Views,
		Forwards:          stat.Forwards,
		Reactions:         stat.Reactions,
		ButtonClicks:      stat.ButtonClicks,
		MeasuredAt:        j.now(),
	}
	if err := j.posts.InsertMetric(ctx, metric); err != nil {
		return fmt.Errorf("persist stats for post %s: %w", postID, err)
	}

	j.logger.Info().
		Str("post_id", post.ID).
		Int("views", stat.Views).
		Int("forwards", stat.Forwards).
		Msg("post stats: point recorded")
	return nil
}

// channelUsername normalizes the channel reference the stats sidecar expects.
func channelUsername(bot *domain.Bot) string {
	return strings.TrimPrefix(bot.ChannelID, "@")
}
