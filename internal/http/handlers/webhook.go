package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"channelpulse/internal/domain"
	"channelpulse/internal/metrics"
	"channelpulse/internal/webhook"
)

// maxUpdateBytes caps the inbound update body. Telegram payloads are small;
// anything larger is not from Telegram.
const maxUpdateBytes = 1 << 20

// TelegramWebhook ingests a Bot API update. The bot token in the path selects
// the integration; the secret header proves the sender knows the secret we
// registered. Processing beyond acknowledgment happens elsewhere.
func (a *App) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bot, err := a.Bots.GetByToken(ctx, chi.URLParam(r, "botToken"))
	if errors.Is(err, domain.ErrNotFound) {
		metrics.WebhookAuth.WithLabelValues("unknown_bot").Inc()
		a.jsonError(w, http.StatusNotFound, "unknown bot")
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("webhook: bot lookup failed")
		a.jsonError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !webhook.Authenticate(r.Header.Get(webhook.SecretTokenHeader), bot.WebhookSecret) {
		metrics.WebhookAuth.WithLabelValues("rejected").Inc()
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	metrics.WebhookAuth.WithLabelValues("accepted").Inc()

	var update struct {
		UpdateID int64 `json:"update_id"`
	}
	// A malformed body is still acknowledged; Telegram retries otherwise.
	_ = json.NewDecoder(io.LimitReader(r.Body, maxUpdateBytes)).Decode(&update)

	a.Logger.Info().
		Str("bot_id", bot.ID).
		Int64("update_id", update.UpdateID).
		Msg("webhook: update accepted")

	a.json(w, http.StatusOK, map[string]bool{"ok": true})
}
