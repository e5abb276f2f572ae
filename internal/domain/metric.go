package domain

import "time"

// SubscriberMetric is one immutable point in a bot's subscriber time series.
// Rows are append-only; ChurnRate is the only field ever rewritten, and only
// on the most recent row, by the churn calculator.
type SubscriberMetric struct {
	ID              string
	BotID           string
	SubscriberCount int
	Growth          int
	ChurnRate       float64
	MeasuredAt      time.Time
}

// PostMetric is one engagement snapshot for a published post. Append-only:
// each collection run records conditions at that moment rather than updating
// a per-day bucket.
type PostMetric struct {
	ID                string
	PostID            string
	TelegramMessageID string
	Views             int
	Forwards          int
	Reactions         map[string]int
	ButtonClicks      map[string]int
	MeasuredAt        time.Time
}
