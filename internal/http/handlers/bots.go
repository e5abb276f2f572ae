package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"channelpulse/internal/domain"
	"channelpulse/internal/webhook"
)

// RegisterWebhook points Telegram at our ingestion URL for the bot, rotating
// its secret in the process.
func (a *App) RegisterWebhook(w http.ResponseWriter, r *http.Request) {
	bot, ok := a.lookupBot(w, r)
	if !ok {
		return
	}
	if err := a.Registrar.Register(r.Context(), bot); err != nil {
		a.registrarError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "registered", "bot_id": bot.ID})
}

// DeregisterWebhook removes the webhook on the Telegram side. The stored
// secret survives so a later re-registration is not racing in-flight updates.
func (a *App) DeregisterWebhook(w http.ResponseWriter, r *http.Request) {
	bot, ok := a.lookupBot(w, r)
	if !ok {
		return
	}
	if err := a.Registrar.Deregister(r.Context(), bot); err != nil {
		a.registrarError(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deregistered", "bot_id": bot.ID})
}

// InspectWebhook proxies Telegram's view of the registration.
func (a *App) InspectWebhook(w http.ResponseWriter, r *http.Request) {
	bot, ok := a.lookupBot(w, r)
	if !ok {
		return
	}
	info, err := a.Registrar.Inspect(r.Context(), bot)
	if err != nil {
		a.registrarError(w, err)
		return
	}
	a.json(w, http.StatusOK, info)
}

func (a *App) lookupBot(w http.ResponseWriter, r *http.Request) (*domain.Bot, bool) {
	bot, err := a.Bots.GetByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		a.jsonError(w, http.StatusNotFound, "bot not found")
		return nil, false
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("bots: lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return bot, true
}

func (a *App) registrarError(w http.ResponseWriter, err error) {
	var regErr *webhook.RegistrationError
	if errors.As(err, &regErr) || errors.Is(err, context.DeadlineExceeded) {
		a.Logger.Warn().Err(err).Msg("bots: telegram call failed")
		a.jsonError(w, http.StatusBadGateway, err.Error())
		return
	}
	a.Logger.Error().Err(err).Msg("bots: registrar failed")
	a.jsonError(w, http.StatusInternalServerError, "internal error")
}
