package webhook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/providers/telegram"
)

// secretBytes is the entropy of a webhook secret; hex-encoded to 64 chars.
const secretBytes = 32

// allowedUpdates is the explicit event allow-list sent on registration.
var allowedUpdates = []string{
	"message",
	"channel_post",
	"edited_channel_post",
	"callback_query",
	"my_chat_member",
	"message_reaction",
	"message_reaction_count",
}

// BotAPI is the slice of the platform client the registrar needs.
type BotAPI interface {
	SetWebhook(ctx context.Context, req telegram.SetWebhookRequest) error
	DeleteWebhook(ctx context.Context) error
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
}

// APIFactory builds a platform client bound to one bot's credentials.
type APIFactory func(botToken string) (BotAPI, error)

// RegistrationError is a failed webhook management call. The wrapped error
// keeps the platform's description; callers decide whether to retry since
// registration is rare and side-effecting.
type RegistrationError struct {
	Op  string
	Err error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("webhook %s: %v", e.Op, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Registrar manages the platform webhook for a bot: it generates the shared
// secret, registers the callback URL, and persists the secret only after the
// platform has accepted it.
type Registrar struct {
	bots    domain.BotRepository
	api     APIFactory
	baseURL string
	logger  infra.Logger
	now     func() time.Time
}

// NewRegistrar constructs the registrar. baseURL is the public origin the
// platform will call back into.
func NewRegistrar(bots domain.BotRepository, api APIFactory, baseURL string, logger infra.Logger) *Registrar {
	return &Registrar{
		bots:    bots,
		api:     api,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

// Register configures the platform webhook for the bot and persists a fresh
// secret. On any failure previously persisted state is left untouched.
func (r *Registrar) Register(ctx context.Context, bot *domain.Bot) error {
	secret, err := newSecret()
	if err != nil {
		return &RegistrationError{Op: "register", Err: err}
	}

	api, err := r.api(bot.BotToken)
	if err != nil {
		return &RegistrationError{Op: "register", Err: err}
	}

	callbackURL := fmt.Sprintf("%s/webhooks/telegram/%s", r.baseURL, bot.BotToken)
	if err := api.SetWebhook(ctx, telegram.SetWebhookRequest{
		URL:            callbackURL,
		SecretToken:    secret,
		AllowedUpdates: allowedUpdates,
	}); err != nil {
		return &RegistrationError{Op: "register", Err: err}
	}

	syncedAt := r.now()
	if err := r.bots.SaveWebhookSecret(ctx, bot.ID, secret, syncedAt); err != nil {
		return &RegistrationError{Op: "register", Err: err}
	}
	bot.WebhookSecret = secret
	bot.LastSyncAt = &syncedAt

	r.logger.Info().Str("bot_id", bot.ID).Str("url", callbackURL).Msg("webhook: configured")
	return nil
}

// Deregister removes the platform webhook. The persisted secret is kept so
// in-flight retried updates stay verifiable until the next registration.
func (r *Registrar) Deregister(ctx context.Context, bot *domain.Bot) error {
	api, err := r.api(bot.BotToken)
	if err != nil {
		return &RegistrationError{Op: "deregister", Err: err}
	}
	if err := api.DeleteWebhook(ctx); err != nil {
		return &RegistrationError{Op: "deregister", Err: err}
	}
	r.logger.Info().Str("bot_id", bot.ID).Msg("webhook: removed")
	return nil
}

// Inspect returns the platform's view of the configured webhook for
// diagnostics. No local state is touched.
func (r *Registrar) Inspect(ctx context.Context, bot *domain.Bot) (*telegram.WebhookInfo, error) {
	api, err := r.api(bot.BotToken)
	if err != nil {
		return nil, &RegistrationError{Op: "inspect", Err: err}
	}
	info, err := api.GetWebhookInfo(ctx)
	if err != nil {
		return nil, &RegistrationError{Op: "inspect", Err: err}
	}
	return info, nil
}

func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
