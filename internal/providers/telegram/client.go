package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"channelpulse/internal/infra"
)

// Options controls how the Bot API client is configured.
type Options struct {
	BotToken string
	// BaseURL points at the Bot API host, https://api.telegram.org by default.
	BaseURL string
	// ParserURL points at the MTProto stats sidecar that serves per-message
	// statistics the Bot API does not expose.
	ParserURL  string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client talks to the Telegram Bot API for one bot plus the stats sidecar.
// Every call carries the caller's context and the injected HTTP client's
// timeout; a non-ok platform response becomes an *APIError preserving the
// human-readable description for logs.
type Client struct {
	botToken   string
	baseURL    string
	parserURL  string
	httpClient *http.Client
	logger     *infra.Logger
}

// APIError is a non-success response from the platform.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("telegram: %s failed", e.Method)
	}
	return fmt.Sprintf("telegram: %s failed: %s", e.Method, e.Description)
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// SetWebhookRequest carries the parameters of a webhook registration.
type SetWebhookRequest struct {
	URL            string   `json:"url"`
	SecretToken    string   `json:"secret_token"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// WebhookInfo is the platform's view of the currently configured webhook.
type WebhookInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// Chat is the subset of getChat the analytics jobs consume.
type Chat struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Username    string `json:"username"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
}

// MessageStat is one post's engagement snapshot from the stats sidecar.
type MessageStat struct {
	MessageID    string         `json:"message_id"`
	Views        int            `json:"views"`
	Forwards     int            `json:"forwards"`
	Reactions    map[string]int `json:"reactions"`
	ButtonClicks map[string]int `json:"button_clicks"`
	NotFound     bool           `json:"not_found,omitempty"`
}

// NewClient constructs a Bot API client. Callers may provide a nil HTTP
// client; a reusable one with a sensible timeout will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BotToken) == "" {
		return nil, fmt.Errorf("telegram: bot token is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	parserURL := strings.TrimRight(opts.ParserURL, "/")

	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}

	return &Client{
		botToken:   strings.TrimSpace(opts.BotToken),
		baseURL:    baseURL,
		parserURL:  parserURL,
		httpClient: client,
		logger:     logger,
	}, nil
}

// SetWebhook registers the callback URL and secret with the platform.
func (c *Client) SetWebhook(ctx context.Context, req SetWebhookRequest) error {
	return c.call(ctx, "setWebhook", req, nil)
}

// DeleteWebhook removes the registered callback.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	return c.call(ctx, "deleteWebhook", nil, nil)
}

// GetWebhookInfo returns the platform's view of the configured webhook.
func (c *Client) GetWebhookInfo(ctx context.Context) (*WebhookInfo, error) {
	var info WebhookInfo
	if err := c.call(ctx, "getWebhookInfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetChat fetches the channel's current state, including its member count.
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	var chat Chat
	params := map[string]string{"chat_id": chatID}
	if err := c.call(ctx, "getChat", params, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

type messageStatsRequest struct {
	ChannelUsername string   `json:"channel_username"`
	MessageIDs      []string `json:"message_ids"`
}

type messageStatsResponse struct {
	Success bool          `json:"success"`
	Stats   []MessageStat `json:"stats"`
	Error   string        `json:"error,omitempty"`
}

// MessageStats fetches per-message engagement from the stats sidecar. The
// Bot API has no views/reactions endpoint, so this goes through the MTProto
// parser service configured via ParserURL.
func (c *Client) MessageStats(ctx context.Context, channelUsername string, messageIDs []string) ([]MessageStat, error) {
	if c.parserURL == "" {
		return nil, &APIError{Method: "message-stats", Description: "stats parser URL not configured"}
	}
	if len(messageIDs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(messageStatsRequest{
		ChannelUsername: channelUsername,
		MessageIDs:      messageIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: encode stats request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.parserURL+"/message-stats", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: build stats request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: message-stats request: %w", err)
	}
	defer resp.Body.Close()

	var parsed messageStatsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("telegram: decode stats response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !parsed.Success {
		return nil, &APIError{Method: "message-stats", Code: resp.StatusCode, Description: parsed.Error}
	}
	return parsed.Stats, nil
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	var body io.Reader
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("telegram: encode %s params: %w", method, err)
		}
		body = bytes.NewReader(encoded)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("telegram: build %s request: %w", method, err)
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: %s request: %w", method, err)
	}
	defer resp.Body.Close()

	var parsed apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("telegram: decode %s response: %w", method, err)
	}
	if !parsed.OK {
		c.logger.Warn().
			Str("method", method).
			Int("error_code", parsed.ErrorCode).
			Str("description", parsed.Description).
			Msg("telegram: api call failed")
		return &APIError{Method: method, Code: parsed.ErrorCode, Description: parsed.Description}
	}

	if result != nil && len(parsed.Result) > 0 {
		if err := json.Unmarshal(parsed.Result, result); err != nil {
			return fmt.Errorf("telegram: decode %s result: %w", method, err)
		}
	}
	return nil
}
