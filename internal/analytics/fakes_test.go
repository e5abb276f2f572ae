package analytics

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
	"channelpulse/internal/providers/telegram"
)

func discardLogger() infra.Logger {
	return zerolog.New(io.Discard)
}

type fakeBotRepo struct {
	bots      map[string]*domain.Bot
	renamed   map[string]string
	renameErr error
	getErr    error
}

func newFakeBotRepo(bots ...*domain.Bot) *fakeBotRepo {
	m := map[string]*domain.Bot{}
	for _, b := range bots {
		m[b.ID] = b
	}
	return &fakeBotRepo{bots: m, renamed: map[string]string{}}
}

func (f *fakeBotRepo) GetByID(_ context.Context, id string) (*domain.Bot, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	bot, ok := f.bots[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *bot
	return &copied, nil
}

func (f *fakeBotRepo) GetByToken(_ context.Context, token string) (*domain.Bot, error) {
	for _, b := range f.bots {
		if b.BotToken == token {
			copied := *b
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBotRepo) ListVerified(context.Context) ([]domain.Bot, error) {
	var out []domain.Bot
	for _, b := range f.bots {
		if b.Verified {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBotRepo) SaveWebhookSecret(context.Context, string, string, time.Time) error {
	return nil
}

func (f *fakeBotRepo) UpdateChannelName(_ context.Context, botID, name string) error {
	if f.renameErr != nil {
		return f.renameErr
	}
	f.renamed[botID] = name
	return nil
}

type fakeMetricRepo struct {
	points    []domain.SubscriberMetric
	inserted  []domain.SubscriberMetric
	churnByID map[string]float64
	insertErr error
	listErr   error
}

func newFakeMetricRepo(points ...domain.SubscriberMetric) *fakeMetricRepo {
	return &fakeMetricRepo{points: points, churnByID: map[string]float64{}}
}

func (f *fakeMetricRepo) Insert(_ context.Context, m *domain.SubscriberMetric) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *m)
	f.points = append(f.points, *m)
	return nil
}

func (f *fakeMetricRepo) Latest(_ context.Context, botID string) (*domain.SubscriberMetric, error) {
	var latest *domain.SubscriberMetric
	for i := range f.points {
		p := f.points[i]
		if p.BotID != botID {
			continue
		}
		if latest == nil || p.MeasuredAt.After(latest.MeasuredAt) {
			latest = &f.points[i]
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeMetricRepo) ListSince(_ context.Context, botID string, since time.Time) ([]domain.SubscriberMetric, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.SubscriberMetric
	for _, p := range f.points {
		if p.BotID == botID && !p.MeasuredAt.Before(since) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeMetricRepo) UpdateChurnRate(_ context.Context, metricID string, rate float64) error {
	f.churnByID[metricID] = rate
	return nil
}

type fakePostRepo struct {
	posts     map[string]*domain.Post
	inserted  []domain.PostMetric
	insertErr error
}

func newFakePostRepo(posts ...*domain.Post) *fakePostRepo {
	m := map[string]*domain.Post{}
	for _, p := range posts {
		m[p.ID] = p
	}
	return &fakePostRepo{posts: m}
}

func (f *fakePostRepo) GetByID(_ context.Context, id string) (*domain.Post, error) {
	p, ok := f.posts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePostRepo) ListPublished(_ context.Context, botID string) ([]domain.Post, error) {
	var out []domain.Post
	for _, p := range f.posts {
		if p.BotID == botID && p.Publishable() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePostRepo) InsertMetric(_ context.Context, m *domain.PostMetric) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, *m)
	return nil
}

type fakeChannelAPI struct {
	chat     *telegram.Chat
	chatErr  error
	stats    []telegram.MessageStat
	statsErr error

	statsChannel string
	statsIDs     []string
}

func (f *fakeChannelAPI) GetChat(context.Context, string) (*telegram.Chat, error) {
	return f.chat, f.chatErr
}

func (f *fakeChannelAPI) MessageStats(_ context.Context, channelUsername string, messageIDs []string) ([]telegram.MessageStat, error) {
	f.statsChannel = channelUsername
	f.statsIDs = messageIDs
	return f.stats, f.statsErr
}

func fixedAPI(api ChannelAPI) APIFactory {
	return func(string) (ChannelAPI, error) { return api, nil }
}

type fakeFinanceRepo struct {
	schema        domain.CostSchema
	costTotals    domain.CostTotals
	costByModel   []domain.ModelCost
	costByDay     map[domain.Day]float64
	revenue       domain.RevenueTotals
	revenueByDay  map[domain.Day]float64
	revenueByPlan map[string]float64
	providers     map[string]string
}

func (f *fakeFinanceRepo) DetectCostSchema(context.Context) domain.CostSchema { return f.schema }

func (f *fakeFinanceRepo) CostTotals(context.Context, domain.Window, domain.CostSchema) (domain.CostTotals, error) {
	return f.costTotals, nil
}

func (f *fakeFinanceRepo) CostByModel(context.Context, domain.Window, domain.CostSchema) ([]domain.ModelCost, error) {
	return f.costByModel, nil
}

func (f *fakeFinanceRepo) CostByDay(context.Context, domain.Window, domain.CostSchema) (map[domain.Day]float64, error) {
	return f.costByDay, nil
}

func (f *fakeFinanceRepo) RevenueTotals(context.Context, domain.Window) (domain.RevenueTotals, error) {
	return f.revenue, nil
}

func (f *fakeFinanceRepo) RevenueByDay(context.Context, domain.Window) (map[domain.Day]float64, error) {
	return f.revenueByDay, nil
}

func (f *fakeFinanceRepo) RevenueByPlan(context.Context, domain.Window) (map[string]float64, error) {
	return f.revenueByPlan, nil
}

func (f *fakeFinanceRepo) ProviderLookup(_ context.Context, modelIDs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range modelIDs {
		if p, ok := f.providers[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
