package domain

import "time"

// Bot is one Telegram channel integration owned by a project.
//
// WebhookSecret is present exactly when a webhook registration has succeeded;
// it is rotated on every successful re-registration and deliberately kept
// after a deregistration so the platform can keep authenticating retried
// updates until the next registration cycle.
type Bot struct {
	ID            string
	ProjectID     string
	BotToken      string
	BotUsername   string
	ChannelID     string
	ChannelName   string
	Verified      bool
	VerifiedAt    *time.Time
	WebhookSecret string
	LastSyncAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Post is the published item whose engagement the analytics jobs track.
// Only the fields this core reads are modeled; authoring lives elsewhere.
type Post struct {
	ID                string
	BotID             string
	Status            PostStatus
	TelegramMessageID string
	CreatedAt         time.Time
}

// PostStatus mirrors the lifecycle managed by the publishing layer.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusScheduled PostStatus = "scheduled"
	PostStatusPublished PostStatus = "published"
)

// Publishable reports whether the post is eligible for stats collection.
func (p *Post) Publishable() bool {
	return p.Status == PostStatusPublished && p.TelegramMessageID != ""
}
