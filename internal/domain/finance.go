package domain

import "time"

// CostSchema describes which optional ai_usage_logs columns are present.
// Detected once per calculation and threaded through the aggregate queries so
// partially migrated databases degrade to coarser totals instead of failing.
type CostSchema struct {
	HasCost         bool
	HasDetailedCost bool
}

// Complete reports whether every cost column the calculator can use exists.
func (s CostSchema) Complete() bool {
	return s.HasCost && s.HasDetailedCost
}

// CostTotals aggregates ai_usage_logs over a window.
type CostTotals struct {
	TotalUSD     float64
	Requests     int
	TokensUsed   int64
	InputTokens  int64
	OutputTokens int64
}

// ModelCost is the per-model cost breakdown row.
type ModelCost struct {
	Model       string
	Requests    int
	TotalTokens int64
	TotalCost   float64
}

// RevenueTotals aggregates completed payments over a window.
type RevenueTotals struct {
	Total    float64
	Payments int
}

// Day is a calendar day key in the daily series, formatted 2006-01-02.
type Day = string

// Window is the half-open [From, To] period an aggregate covers.
type Window struct {
	From time.Time
	To   time.Time
}

// Days returns the whole number of days the window spans.
func (w Window) Days() int {
	return int(w.To.Sub(w.From) / (24 * time.Hour))
}
