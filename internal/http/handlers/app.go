package handlers

import (
	"encoding/json"
	"net/http"

	"channelpulse/internal/analytics"
	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/webhook"
)

// App carries the dependencies the HTTP handlers need.
type App struct {
	Bots      domain.BotRepository
	Registrar *webhook.Registrar
	ROI       *analytics.ROICalculator
	Logger    infra.Logger
}

func NewApp(bots domain.BotRepository, registrar *webhook.Registrar, roi *analytics.ROICalculator, logger infra.Logger) *App {
	return &App{Bots: bots, Registrar: registrar, ROI: roi, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) jsonError(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}
