package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"channelpulse/internal/adapter/repo"
	"channelpulse/internal/analytics"
	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/jobs"
	"channelpulse/internal/metrics"
	"channelpulse/internal/providers/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	bots := repo.NewBotRepository(pool)
	metricRepo := repo.NewSubscriberMetricRepository(pool)
	posts := repo.NewPostRepository(pool)
	queue := repo.NewJobRepository(pool)

	httpClient := &http.Client{Timeout: cfg.TelegramHTTPTimeout}
	apiFactory := func(botToken string) (analytics.ChannelAPI, error) {
		return telegram.NewClient(telegram.Options{
			BotToken:   botToken,
			BaseURL:    cfg.TelegramAPIBaseURL,
			ParserURL:  cfg.TelegramParserURL,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
	}

	snapshot := analytics.NewSnapshotJob(bots, metricRepo, apiFactory, logger)
	churn := analytics.NewChurnCalculator(bots, metricRepo, logger)
	postStats := analytics.NewPostStatsJob(posts, bots, apiFactory, logger)

	runner := jobs.NewRunner(queue, cfg.WorkerConcurrency, logger)
	// A fresh snapshot changes the series, so churn is recomputed right after.
	runner.Register(domain.JobKindChannelSnapshot, func(ctx context.Context, botID string) error {
		if err := snapshot.Run(ctx, botID); err != nil {
			return err
		}
		return queue.Enqueue(ctx, domain.JobKindChurnRate, botID)
	})
	runner.Register(domain.JobKindChurnRate, churn.Run)
	runner.Register(domain.JobKindPostStats, postStats.Run)

	// Job counters and durations are recorded in-process, so the worker runs
	// its own scrape listener.
	opsServer := infra.NewHTTPServer(":"+cfg.MetricsPort, metrics.OpsHandler(), infra.HTTPTimeouts{
		Read:  cfg.HTTPReadTimeout,
		Write: cfg.HTTPWriteTimeout,
		Idle:  cfg.HTTPIdleTimeout,
	})
	go func() {
		logger.Info().Msgf("worker: metrics listening on :%s", cfg.MetricsPort)
		if err := opsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("worker: metrics server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("worker: metrics server shutdown failed")
		}
	}()

	scheduler := jobs.NewScheduler(bots, posts, queue, cfg.SnapshotInterval, logger)
	go func() {
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("worker: scheduler stopped with error")
		}
	}()

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker: started")
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}
