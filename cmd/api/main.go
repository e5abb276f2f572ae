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
	"channelpulse/internal/http/handlers"
	"channelpulse/internal/http/httpapi"
	"channelpulse/internal/infra"
	"channelpulse/internal/providers/telegram"
	"channelpulse/internal/webhook"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	bots := repo.NewBotRepository(dbpool)
	finance := repo.NewFinanceRepository(dbpool, logger)

	httpClient := &http.Client{Timeout: cfg.TelegramHTTPTimeout}
	apiFactory := func(botToken string) (webhook.BotAPI, error) {
		return telegram.NewClient(telegram.Options{
			BotToken:   botToken,
			BaseURL:    cfg.TelegramAPIBaseURL,
			ParserURL:  cfg.TelegramParserURL,
			HTTPClient: httpClient,
			Logger:     &logger,
		})
	}

	registrar := webhook.NewRegistrar(bots, apiFactory, cfg.WebhookBaseURL, logger)
	roi := analytics.NewROICalculator(finance, cfg.USDToRUBRate, logger)

	app := handlers.NewApp(bots, registrar, roi, logger)
	router := httpapi.NewRouter(app, logger)
	server := infra.NewHTTPServer(":"+cfg.Port, router, infra.HTTPTimeouts{
		Read:  cfg.HTTPReadTimeout,
		Write: cfg.HTTPWriteTimeout,
		Idle:  cfg.HTTPIdleTimeout,
	})

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
