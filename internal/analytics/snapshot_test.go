package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"channelpulse/internal/domain"
	"channelpulse/internal/providers/telegram"
)

func verifiedBot() *domain.Bot {
	return &domain.Bot{
		ID:          "bot-1",
		BotToken:    "123:abc",
		ChannelID:   "@growthweekly",
		ChannelName: "Growth Weekly",
		Verified:    true,
	}
}

func TestSnapshotFirstPointHasZeroGrowth(t *testing.T) {
	bots := newFakeBotRepo(verifiedBot())
	metrics := newFakeMetricRepo()
	api := &fakeChannelAPI{chat: &telegram.Chat{Title: "Growth Weekly", MemberCount: 100}}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(metrics.inserted) != 1 {
		t.Fatalf("inserted %d points, want 1", len(metrics.inserted))
	}
	got := metrics.inserted[0]
	if got.SubscriberCount != 100 || got.Growth != 0 {
		t.Fatalf("first point = count %d growth %d, want 100/0", got.SubscriberCount, got.Growth)
	}
	if got.ChurnRate != 0 {
		t.Fatalf("churn placeholder = %v, want 0", got.ChurnRate)
	}
}

func TestSnapshotGrowthAgainstPreviousPoint(t *testing.T) {
	bots := newFakeBotRepo(verifiedBot())
	metrics := newFakeMetricRepo(domain.SubscriberMetric{
		ID: "m-1", BotID: "bot-1", SubscriberCount: 100,
		MeasuredAt: time.Now().Add(-time.Hour),
	})
	api := &fakeChannelAPI{chat: &telegram.Chat{Title: "Growth Weekly", MemberCount: 130}}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := metrics.inserted[0].Growth; got != 30 {
		t.Fatalf("growth = %d, want 30", got)
	}

	// Second run after losing subscribers appends a negative-growth point.
	api.chat = &telegram.Chat{Title: "Growth Weekly", MemberCount: 80}
	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if got := metrics.inserted[1].Growth; got != -50 {
		t.Fatalf("growth = %d, want -50", got)
	}
	if len(metrics.inserted) != 2 {
		t.Fatalf("expected append-only series, got %d points", len(metrics.inserted))
	}
}

func TestSnapshotUnverifiedBotIsNoOp(t *testing.T) {
	bot := verifiedBot()
	bot.Verified = false
	bots := newFakeBotRepo(bot)
	metrics := newFakeMetricRepo()
	api := &fakeChannelAPI{chat: &telegram.Chat{MemberCount: 100}}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(metrics.inserted) != 0 {
		t.Fatal("snapshot recorded for an unverified bot")
	}
}

func TestSnapshotUpdatesChangedChannelName(t *testing.T) {
	bots := newFakeBotRepo(verifiedBot())
	metrics := newFakeMetricRepo()
	api := &fakeChannelAPI{chat: &telegram.Chat{Title: "Growth Daily", MemberCount: 100}}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := bots.renamed["bot-1"]; got != "Growth Daily" {
		t.Fatalf("renamed to %q, want Growth Daily", got)
	}
}

func TestSnapshotKeepsUnchangedChannelName(t *testing.T) {
	bots := newFakeBotRepo(verifiedBot())
	metrics := newFakeMetricRepo()
	api := &fakeChannelAPI{chat: &telegram.Chat{Title: "Growth Weekly", MemberCount: 100}}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	if err := job.Run(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := bots.renamed["bot-1"]; ok {
		t.Fatal("channel name rewritten without a change")
	}
}

func TestSnapshotAPIFailurePropagates(t *testing.T) {
	bots := newFakeBotRepo(verifiedBot())
	metrics := newFakeMetricRepo()
	apiErr := &telegram.APIError{Method: "getChat", Description: "chat not found"}
	api := &fakeChannelAPI{chatErr: apiErr}
	job := NewSnapshotJob(bots, metrics, fixedAPI(api), discardLogger())

	err := job.Run(context.Background(), "bot-1")
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected wrapped API error, got %v", err)
	}
	if len(metrics.inserted) != 0 {
		t.Fatal("point persisted despite API failure")
	}
}
