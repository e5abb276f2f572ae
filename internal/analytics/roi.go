package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
)

// DefaultROIPeriod is the lookback used when the caller does not name one.
const DefaultROIPeriod = 30 * 24 * time.Hour

// Report is the structured ROI aggregate over one lookback window.
type Report struct {
	Period            Period         `json:"period"`
	AICosts           CostSummary    `json:"ai_costs"`
	Revenue           RevenueSummary `json:"revenue"`
	ROI               ROISummary     `json:"roi"`
	ByModel           []ModelCost    `json:"breakdown_by_model"`
	ByProvider        []ProviderCost `json:"breakdown_by_provider"`
	Daily             []DailyStat    `json:"daily_stats"`
	MigrationsPending bool           `json:"migrations_pending"`
}

// Period is the window the report covers.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Days int       `json:"days"`
}

// CostSummary aggregates AI spend over the window.
type CostSummary struct {
	TotalUSD              float64 `json:"total_usd"`
	TotalRUB              float64 `json:"total_rub"`
	RequestsCount         int     `json:"requests_count"`
	TokensUsed            int64   `json:"tokens_used"`
	AverageCostPerRequest float64 `json:"average_cost_per_request"`
	InputTokens           int64   `json:"input_tokens,omitempty"`
	OutputTokens          int64   `json:"output_tokens,omitempty"`
}

// RevenueSummary aggregates completed-payment revenue over the window.
type RevenueSummary struct {
	Total          float64            `json:"total"`
	PaymentsCount  int                `json:"payments_count"`
	AveragePayment float64            `json:"average_payment"`
	ByPlan         map[string]float64 `json:"by_plan"`
}

// ROISummary relates revenue to converted AI spend. ROIPercent is positive
// infinity when there was no spend: any revenue is infinite return.
type ROISummary struct {
	Profit     float64 `json:"profit"`
	ROIPercent float64 `json:"roi_percent"`
	Profitable bool    `json:"profitable"`
}

// MarshalJSON renders an infinite ROI as the string "Infinity" because JSON
// has no encoding for IEEE infinities.
func (s ROISummary) MarshalJSON() ([]byte, error) {
	roi := any(s.ROIPercent)
	if math.IsInf(s.ROIPercent, 1) {
		roi = "Infinity"
	}
	return json.Marshal(map[string]any{
		"profit":      s.Profit,
		"roi_percent": roi,
		"profitable":  s.Profitable,
	})
}

// ModelCost is the per-model spend row, sorted descending by cost.
type ModelCost struct {
	Model         string  `json:"model"`
	RequestsCount int     `json:"requests_count"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// ProviderCost aggregates model spend per provider, sorted descending by cost.
type ProviderCost struct {
	Provider string  `json:"provider"`
	Requests int     `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// DailyStat is one calendar day of the combined series. Days come from the
// union of cost-days and revenue-days; the absent side defaults to zero.
type DailyStat struct {
	Date      string  `json:"date"`
	AICostUSD float64 `json:"ai_cost_usd"`
	AICostRUB float64 `json:"ai_cost_rub"`
	Revenue   float64 `json:"revenue"`
}

// ROICalculator aggregates AI spend against subscription revenue. It only
// reads, takes no locks, and is safe to run concurrently with the collection
// jobs; small skew between the two reads at the window boundary is accepted.
type ROICalculator struct {
	finance domain.FinanceRepository
	// usdToRUB converts AI spend (tracked in USD) into the revenue currency.
	usdToRUB float64
	logger   infra.Logger
	now      func() time.Time
}

// NewROICalculator constructs the calculator with the configured exchange rate.
func NewROICalculator(finance domain.FinanceRepository, usdToRUB float64, logger infra.Logger) *ROICalculator {
	return &ROICalculator{
		finance:  finance,
		usdToRUB: usdToRUB,
		logger:   logger,
		now:      time.Now,
	}
}

// Calculate builds the full report for the trailing period. Missing optional
// cost columns never fail the calculation; they reduce precision and set
// MigrationsPending.
func (c *ROICalculator) Calculate(ctx context.Context, period time.Duration) (*Report, error) {
	if period <= 0 {
		period = DefaultROIPeriod
	}
	to := c.now()
	w := domain.Window{From: to.Add(-period), To: to}

	schema := c.finance.DetectCostSchema(ctx)

	costs, err := c.costSummary(ctx, w, schema)
	if err != nil {
		return nil, err
	}
	revenue, err := c.revenueSummary(ctx, w)
	if err != nil {
		return nil, err
	}
	byModel, err := c.costsByModel(ctx, w, schema)
	if err != nil {
		return nil, err
	}
	byProvider, err := c.costsByProvider(ctx, byModel)
	if err != nil {
		return nil, err
	}
	daily, err := c.dailyStats(ctx, w, schema)
	if err != nil {
		return nil, err
	}

	return &Report{
		Period:            Period{From: w.From, To: w.To, Days: w.Days()},
		AICosts:           costs,
		Revenue:           revenue,
		ROI:               roiSummary(costs.TotalRUB, revenue.Total),
		ByModel:           byModel,
		ByProvider:        byProvider,
		Daily:             daily,
		MigrationsPending: !schema.Complete(),
	}, nil
}

func (c *ROICalculator) costSummary(ctx context.Context, w domain.Window, schema domain.CostSchema) (CostSummary, error) {
	if !schema.HasCost {
		return CostSummary{}, nil
	}
	totals, err := c.finance.CostTotals(ctx, w, schema)
	if err != nil {
		return CostSummary{}, fmt.Errorf("aggregate ai costs: %w", err)
	}

	summary := CostSummary{
		TotalUSD:      round6(totals.TotalUSD),
		TotalRUB:      round2(totals.TotalUSD * c.usdToRUB),
		RequestsCount: totals.Requests,
		TokensUsed:    totals.TokensUsed,
	}
	if totals.Requests > 0 {
		summary.AverageCostPerRequest = round6(totals.TotalUSD / float64(totals.Requests))
	}
	if schema.HasDetailedCost {
		summary.InputTokens = totals.InputTokens
		summary.OutputTokens = totals.OutputTokens
	}
	return summary, nil
}

func (c *ROICalculator) revenueSummary(ctx context.Context, w domain.Window) (RevenueSummary, error) {
	totals, err := c.finance.RevenueTotals(ctx, w)
	if err != nil {
		return RevenueSummary{}, fmt.Errorf("aggregate revenue: %w", err)
	}
	byPlan, err := c.finance.RevenueByPlan(ctx, w)
	if err != nil {
		return RevenueSummary{}, fmt.Errorf("aggregate revenue by plan: %w", err)
	}

	summary := RevenueSummary{
		Total:         round2(totals.Total),
		PaymentsCount: totals.Payments,
		ByPlan:        byPlan,
	}
	if totals.Payments > 0 {
		summary.AveragePayment = round2(totals.Total / float64(totals.Payments))
	}
	return summary, nil
}

func (c *ROICalculator) costsByModel(ctx context.Context, w domain.Window, schema domain.CostSchema) ([]ModelCost, error) {
	if !schema.HasCost {
		return []ModelCost{}, nil
	}
	rows, err := c.finance.CostByModel(ctx, w, schema)
	if err != nil {
		return nil, fmt.Errorf("aggregate costs by model: %w", err)
	}

	out := make([]ModelCost, 0, len(rows))
	for _, row := range rows {
		out = append(out, ModelCost{
			Model:         row.Model,
			RequestsCount: row.Requests,
			TotalTokens:   row.TotalTokens,
			TotalCost:     round6(row.TotalCost),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalCost > out[j].TotalCost })
	return out, nil
}

func (c *ROICalculator) costsByProvider(ctx context.Context, byModel []ModelCost) ([]ProviderCost, error) {
	if len(byModel) == 0 {
		return []ProviderCost{}, nil
	}

	modelIDs := make([]string, 0, len(byModel))
	for _, m := range byModel {
		modelIDs = append(modelIDs, m.Model)
	}
	lookup, err := c.finance.ProviderLookup(ctx, modelIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve model providers: %w", err)
	}

	grouped := map[string]*ProviderCost{}
	for _, m := range byModel {
		provider, ok := lookup[m.Model]
		if !ok {
			provider = ExtractProvider(m.Model)
		}
		agg, ok := grouped[provider]
		if !ok {
			agg = &ProviderCost{Provider: provider}
			grouped[provider] = agg
		}
		agg.Requests += m.RequestsCount
		agg.Tokens += m.TotalTokens
		agg.Cost += m.TotalCost
	}

	out := make([]ProviderCost, 0, len(grouped))
	for _, agg := range grouped {
		agg.Cost = round6(agg.Cost)
		out = append(out, *agg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Cost > out[j].Cost })
	return out, nil
}

func (c *ROICalculator) dailyStats(ctx context.Context, w domain.Window, schema domain.CostSchema) ([]DailyStat, error) {
	costByDay := map[domain.Day]float64{}
	if schema.HasCost {
		var err error
		costByDay, err = c.finance.CostByDay(ctx, w, schema)
		if err != nil {
			return nil, fmt.Errorf("aggregate daily costs: %w", err)
		}
	}
	revenueByDay, err := c.finance.RevenueByDay(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("aggregate daily revenue: %w", err)
	}

	seen := map[domain.Day]struct{}{}
	days := make([]string, 0, len(costByDay)+len(revenueByDay))
	for d := range costByDay {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			days = append(days, d)
		}
	}
	for d := range revenueByDay {
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			days = append(days, d)
		}
	}
	sort.Strings(days)

	out := make([]DailyStat, 0, len(days))
	for _, d := range days {
		cost := costByDay[d]
		out = append(out, DailyStat{
			Date:      d,
			AICostUSD: round6(cost),
			AICostRUB: round2(cost * c.usdToRUB),
			Revenue:   round2(revenueByDay[d]),
		})
	}
	return out, nil
}

func roiSummary(costsRUB, revenue float64) ROISummary {
	if costsRUB == 0 {
		return ROISummary{
			Profit:     round2(revenue),
			ROIPercent: math.Inf(1),
			Profitable: revenue > 0,
		}
	}
	profit := revenue - costsRUB
	return ROISummary{
		Profit:     round2(profit),
		ROIPercent: round2(profit / costsRUB * 100),
		Profitable: profit > 0,
	}
}

var providerCaser = cases.Title(language.English)

// ExtractProvider guesses a provider from a model identifier when the lookup
// table has no entry. The convention is "provider/model"; the token before
// the first slash is title-cased. Best effort only.
func ExtractProvider(modelID string) string {
	token, _, _ := strings.Cut(modelID, "/")
	token = strings.TrimSpace(token)
	if token == "" {
		return "Unknown"
	}
	return providerCaser.String(token)
}
