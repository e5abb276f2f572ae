package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"channelpulse/internal/analytics"
	"channelpulse/internal/domain"
	"channelpulse/internal/http/handlers"
	"channelpulse/internal/providers/telegram"
	"channelpulse/internal/webhook"
)

type fakeBotRepo struct {
	bots map[string]*domain.Bot
}

func (f *fakeBotRepo) GetByID(ctx context.Context, id string) (*domain.Bot, error) {
	for _, b := range f.bots {
		if b.ID == id {
			clone := *b
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBotRepo) GetByToken(ctx context.Context, token string) (*domain.Bot, error) {
	if b, ok := f.bots[token]; ok {
		clone := *b
		return &clone, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBotRepo) ListVerified(ctx context.Context) ([]domain.Bot, error) { return nil, nil }

func (f *fakeBotRepo) SaveWebhookSecret(ctx context.Context, botID, secret string, syncedAt time.Time) error {
	for _, b := range f.bots {
		if b.ID == botID {
			b.WebhookSecret = secret
		}
	}
	return nil
}

func (f *fakeBotRepo) UpdateChannelName(ctx context.Context, botID, channelName string) error {
	return nil
}

type fakeBotAPI struct {
	setCalls    int
	deleteCalls int
	lastSet     telegram.SetWebhookRequest
}

func (f *fakeBotAPI) SetWebhook(ctx context.Context, req telegram.SetWebhookRequest) error {
	f.setCalls++
	f.lastSet = req
	return nil
}

func (f *fakeBotAPI) DeleteWebhook(ctx context.Context) error {
	f.deleteCalls++
	return nil
}

func (f *fakeBotAPI) GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error) {
	return &telegram.WebhookInfo{URL: "https://pulse.example/webhooks/telegram/token-abc"}, nil
}

type fakeFinanceRepo struct{}

func (f *fakeFinanceRepo) DetectCostSchema(ctx context.Context) domain.CostSchema {
	return domain.CostSchema{HasCost: true, HasDetailedCost: true}
}

func (f *fakeFinanceRepo) CostTotals(ctx context.Context, w domain.Window, schema domain.CostSchema) (domain.CostTotals, error) {
	return domain.CostTotals{TotalUSD: 2, Requests: 4}, nil
}

func (f *fakeFinanceRepo) CostByModel(ctx context.Context, w domain.Window, schema domain.CostSchema) ([]domain.ModelCost, error) {
	return nil, nil
}

func (f *fakeFinanceRepo) CostByDay(ctx context.Context, w domain.Window, schema domain.CostSchema) (map[domain.Day]float64, error) {
	return map[domain.Day]float64{}, nil
}

func (f *fakeFinanceRepo) RevenueTotals(ctx context.Context, w domain.Window) (domain.RevenueTotals, error) {
	return domain.RevenueTotals{Total: 360, Payments: 2}, nil
}

func (f *fakeFinanceRepo) RevenueByDay(ctx context.Context, w domain.Window) (map[domain.Day]float64, error) {
	return map[domain.Day]float64{}, nil
}

func (f *fakeFinanceRepo) RevenueByPlan(ctx context.Context, w domain.Window) (map[string]float64, error) {
	return map[string]float64{}, nil
}

func (f *fakeFinanceRepo) ProviderLookup(ctx context.Context, modelIDs []string) (map[string]string, error) {
	return map[string]string{}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeBotRepo, *fakeBotAPI) {
	t.Helper()

	bots := &fakeBotRepo{bots: map[string]*domain.Bot{
		"token-abc": {
			ID:            "bot-1",
			BotToken:      "token-abc",
			ChannelID:     "@pulsechan",
			Verified:      true,
			WebhookSecret: "sekret",
		},
	}}
	api := &fakeBotAPI{}
	logger := zerolog.Nop()

	registrar := webhook.NewRegistrar(bots, func(botToken string) (webhook.BotAPI, error) {
		return api, nil
	}, "https://pulse.example", logger)
	roi := analytics.NewROICalculator(&fakeFinanceRepo{}, 90, logger)

	app := handlers.NewApp(bots, registrar, roi, logger)
	return httptest.NewServer(NewRouter(app, logger)), bots, api
}

func TestTelegramWebhookMatrix(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	cases := []struct {
		name       string
		token      string
		secret     string
		wantStatus int
	}{
		{name: "unknown bot", token: "token-missing", secret: "sekret", wantStatus: http.StatusNotFound},
		{name: "wrong secret", token: "token-abc", secret: "not-it", wantStatus: http.StatusUnauthorized},
		{name: "missing secret", token: "token-abc", secret: "", wantStatus: http.StatusUnauthorized},
		{name: "accepted", token: "token-abc", secret: "sekret", wantStatus: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/telegram/"+tc.token,
				strings.NewReader(`{"update_id":42}`))
			if err != nil {
				t.Fatal(err)
			}
			if tc.secret != "" {
				req.Header.Set(webhook.SecretTokenHeader, tc.secret)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestTelegramWebhookUnauthorizedBodyIsEmpty(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/webhooks/telegram/token-abc", strings.NewReader("{}"))
	req.Header.Set(webhook.SecretTokenHeader, "wrong")
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.ContentLength > 0 {
		t.Fatalf("unauthorized response should carry no body, got length %d", resp.ContentLength)
	}
}

func TestROIReportEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/reports/roi?days=7")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var report struct {
		Period struct {
			Days int `json:"days"`
		} `json:"period"`
		Costs struct {
			TotalRUB float64 `json:"total_rub"`
		} `json:"ai_costs"`
		ROI struct {
			Profit float64 `json:"profit"`
		} `json:"roi"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Period.Days != 7 {
		t.Fatalf("period days = %d, want 7", report.Period.Days)
	}
	if report.Costs.TotalRUB != 180 {
		t.Fatalf("total_rub = %v, want 180", report.Costs.TotalRUB)
	}
	if report.ROI.Profit != 180 {
		t.Fatalf("profit = %v, want 180", report.ROI.Profit)
	}
}

func TestROIReportRejectsBadDays(t *testing.T) {
	srv, _, _ := newTestServer(t)
	defer srv.Close()

	for _, q := range []string{"days=0", "days=-3", "days=abc"} {
		resp, err := srv.Client().Get(srv.URL + "/reports/roi?" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestWebhookManagementEndpoints(t *testing.T) {
	srv, bots, api := newTestServer(t)
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/bots/bot-1/webhook", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d, want 200", resp.StatusCode)
	}
	if api.setCalls != 1 {
		t.Fatalf("setWebhook calls = %d, want 1", api.setCalls)
	}
	if got := bots.bots["token-abc"].WebhookSecret; got == "sekret" || len(got) != 64 {
		t.Fatalf("secret not rotated: %q", got)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/bots/bot-1/webhook", nil)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deregister status = %d, want 200", resp.StatusCode)
	}
	if api.deleteCalls != 1 {
		t.Fatalf("deleteWebhook calls = %d, want 1", api.deleteCalls)
	}

	resp, err = srv.Client().Get(srv.URL + "/bots/bot-1/webhook")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var info telegram.WebhookInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatal(err)
	}
	if info.URL == "" {
		t.Fatal("inspect returned empty webhook info")
	}

	resp, err = srv.Client().Post(srv.URL+"/bots/bot-missing/webhook", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown bot status = %d, want 404", resp.StatusCode)
	}
}
