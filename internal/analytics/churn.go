package analytics

import (
	"context"
	"fmt"
	"math"
	"time"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
)

// churnWindow is the trailing period churn is derived over.
const churnWindow = 30 * 24 * time.Hour

// ChurnCalculator derives a churn rate from the subscriber series and writes
// it back onto the most recent point in the window. It never appends rows.
type ChurnCalculator struct {
	bots    domain.BotRepository
	metrics domain.SubscriberMetricRepository
	logger  infra.Logger
	now     func() time.Time
}

// NewChurnCalculator constructs the calculator.
func NewChurnCalculator(bots domain.BotRepository, metrics domain.SubscriberMetricRepository, logger infra.Logger) *ChurnCalculator {
	return &ChurnCalculator{
		bots:    bots,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run computes churn over the trailing window. Unverified bots and series
// with fewer than two in-window points are deliberate no-ops. Recomputing an
// unchanged window yields the same rate, so reruns are harmless.
func (c *ChurnCalculator) Run(ctx context.Context, botID string) error {
	bot, err := c.bots.GetByID(ctx, botID)
	if err != nil {
		return fmt.Errorf("load bot %s: %w", botID, err)
	}
	if !bot.Verified {
		c.logger.Debug().Str("bot_id", botID).Msg("churn: skipping unverified bot")
		return nil
	}

	since := c.now().Add(-churnWindow)
	points, err := c.metrics.ListSince(ctx, bot.ID, since)
	if err != nil {
		return fmt.Errorf("load metric window for bot %s: %w", botID, err)
	}
	if len(points) < 2 {
		c.logger.Debug().Str("bot_id", botID).Int("points", len(points)).Msg("churn: not enough data")
		return nil
	}

	rate := ChurnRate(points)
	latest := points[len(points)-1]
	if err := c.metrics.UpdateChurnRate(ctx, latest.ID, rate); err != nil {
		return fmt.Errorf("write churn rate for bot %s: %w", botID, err)
	}

	c.logger.Info().Str("bot_id", bot.ID).Float64("churn_rate", rate).Msg("churn: rate updated")
	return nil
}

// ChurnRate computes lost subscribers against the average base over the
// window: avg = (first + last) / 2, lost = Σ|negative growth|,
// rate = lost / avg × 100 rounded to two decimals. Zero when the average
// base is zero. Points must be ordered by measurement time ascending.
func ChurnRate(points []domain.SubscriberMetric) float64 {
	start := points[0].SubscriberCount
	end := points[len(points)-1].SubscriberCount

	lost := 0
	for _, p := range points {
		if p.Growth < 0 {
			lost -= p.Growth
		}
	}

	avg := float64(start+end) / 2
	if avg <= 0 {
		return 0
	}
	return round2(float64(lost) / avg * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
