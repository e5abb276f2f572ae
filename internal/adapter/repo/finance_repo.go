package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"channelpulse/internal/domain"
	"channelpulse/internal/infra"
)

// FinanceRepositoryPG implements the read-only aggregation surface over the
// AI usage and payment tables. Both are populated by collaborators outside
// this core; nothing here mutates.
type FinanceRepositoryPG struct {
	pool   *pgxpool.Pool
	logger infra.Logger
}

// NewFinanceRepository constructs the repository.
func NewFinanceRepository(pool *pgxpool.Pool, logger infra.Logger) *FinanceRepositoryPG {
	return &FinanceRepositoryPG{pool: pool, logger: logger}
}

// DetectCostSchema probes which optional ai_usage_logs columns exist. The
// probe itself must never fail a calculation: any error degrades to the
// empty schema and the caller reports migrations as pending.
func (r *FinanceRepositoryPG) DetectCostSchema(ctx context.Context) domain.CostSchema {
	rows, err := r.pool.Query(ctx, `
SELECT column_name
FROM information_schema.columns
WHERE table_name = 'ai_usage_logs' AND column_name IN ('cost', 'input_cost');
`)
	if err != nil {
		r.logger.Warn().Err(err).Msg("finance: cost schema probe failed")
		return domain.CostSchema{}
	}
	defer rows.Close()

	var schema domain.CostSchema
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			r.logger.Warn().Err(err).Msg("finance: cost schema probe failed")
			return domain.CostSchema{}
		}
		switch name {
		case "cost":
			schema.HasCost = true
		case "input_cost":
			schema.HasDetailedCost = true
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.Warn().Err(err).Msg("finance: cost schema probe failed")
		return domain.CostSchema{}
	}
	// Detailed columns are meaningless without the base cost column.
	schema.HasDetailedCost = schema.HasDetailedCost && schema.HasCost
	return schema
}

// costExpr is the per-row spend for the detected schema.
func costExpr(schema domain.CostSchema) string {
	if schema.HasDetailedCost {
		return "cost + COALESCE(input_cost, 0) + COALESCE(output_cost, 0)"
	}
	return "cost"
}

// CostTotals aggregates spend, request, and token counts over the window.
func (r *FinanceRepositoryPG) CostTotals(ctx context.Context, w domain.Window, schema domain.CostSchema) (domain.CostTotals, error) {
	var totals domain.CostTotals
	if !schema.HasCost {
		return totals, nil
	}

	if schema.HasDetailedCost {
		row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(`+costExpr(schema)+`), 0),
       COUNT(*),
       COALESCE(SUM(tokens_used), 0),
       COALESCE(SUM(input_tokens), 0),
       COALESCE(SUM(output_tokens), 0)
FROM ai_usage_logs
WHERE created_at >= $1 AND created_at <= $2;
`, w.From, w.To)
		err := row.Scan(&totals.TotalUSD, &totals.Requests, &totals.TokensUsed, &totals.InputTokens, &totals.OutputTokens)
		return totals, err
	}

	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(cost), 0), COUNT(*), COALESCE(SUM(tokens_used), 0)
FROM ai_usage_logs
WHERE created_at >= $1 AND created_at <= $2;
`, w.From, w.To)
	err := row.Scan(&totals.TotalUSD, &totals.Requests, &totals.TokensUsed)
	return totals, err
}

// CostByModel groups spend by model identifier.
func (r *FinanceRepositoryPG) CostByModel(ctx context.Context, w domain.Window, schema domain.CostSchema) ([]domain.ModelCost, error) {
	if !schema.HasCost {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT model_used, COUNT(*), COALESCE(SUM(tokens_used), 0), COALESCE(SUM(`+costExpr(schema)+`), 0)
FROM ai_usage_logs
WHERE created_at >= $1 AND created_at <= $2
GROUP BY model_used
ORDER BY 4 DESC;
`, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.ModelCost
	for rows.Next() {
		var m domain.ModelCost
		if err := rows.Scan(&m.Model, &m.Requests, &m.TotalTokens, &m.TotalCost); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// CostByDay sums spend per calendar day within the window.
func (r *FinanceRepositoryPG) CostByDay(ctx context.Context, w domain.Window, schema domain.CostSchema) (map[domain.Day]float64, error) {
	if !schema.HasCost {
		return map[domain.Day]float64{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT to_char(created_at::date, 'YYYY-MM-DD'), COALESCE(SUM(`+costExpr(schema)+`), 0)
FROM ai_usage_logs
WHERE created_at >= $1 AND created_at <= $2
GROUP BY 1;
`, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDaySums(rows)
}

// RevenueTotals sums completed payments over the window.
func (r *FinanceRepositoryPG) RevenueTotals(ctx context.Context, w domain.Window) (domain.RevenueTotals, error) {
	var totals domain.RevenueTotals
	row := r.pool.QueryRow(ctx, `
SELECT COALESCE(SUM(amount), 0), COUNT(*)
FROM payments
WHERE status = 'completed' AND created_at >= $1 AND created_at <= $2;
`, w.From, w.To)
	err := row.Scan(&totals.Total, &totals.Payments)
	return totals, err
}

// RevenueByDay sums completed payments per calendar day.
func (r *FinanceRepositoryPG) RevenueByDay(ctx context.Context, w domain.Window) (map[domain.Day]float64, error) {
	rows, err := r.pool.Query(ctx, `
SELECT to_char(created_at::date, 'YYYY-MM-DD'), COALESCE(SUM(amount), 0)
FROM payments
WHERE status = 'completed' AND created_at >= $1 AND created_at <= $2
GROUP BY 1;
`, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanDaySums(rows)
}

// RevenueByPlan groups completed payments by plan. The preferred grouping
// joins subscriptions to the plans table; on databases where historical
// subscriptions are not yet linked to a plan row the query falls back to the
// subscription's raw plan label.
func (r *FinanceRepositoryPG) RevenueByPlan(ctx context.Context, w domain.Window) (map[string]float64, error) {
	byPlan, err := r.revenueGroupedBy(ctx, w, `
SELECT pl.name, COALESCE(SUM(p.amount), 0)
FROM payments p
JOIN subscriptions s ON s.id = p.subscription_id
JOIN plans pl ON pl.id = s.plan_id
WHERE p.status = 'completed' AND p.created_at >= $1 AND p.created_at <= $2
GROUP BY pl.name;
`)
	if err == nil {
		return byPlan, nil
	}
	if !isMissingRelation(err) {
		return nil, err
	}

	r.logger.Warn().Err(err).Msg("finance: plan table join unavailable, grouping by raw plan label")
	return r.revenueGroupedBy(ctx, w, `
SELECT s.plan, COALESCE(SUM(p.amount), 0)
FROM payments p
JOIN subscriptions s ON s.id = p.subscription_id
WHERE p.status = 'completed' AND p.created_at >= $1 AND p.created_at <= $2
GROUP BY s.plan;
`)
}

// ProviderLookup resolves model ids via the optional ai_models table. A
// missing table yields an empty map, leaving attribution to the heuristic.
func (r *FinanceRepositoryPG) ProviderLookup(ctx context.Context, modelIDs []string) (map[string]string, error) {
	if len(modelIDs) == 0 {
		return map[string]string{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT model_id, provider
FROM ai_models
WHERE model_id = ANY($1);
`, modelIDs)
	if err != nil {
		if isMissingRelation(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var modelID, provider string
		if err := rows.Scan(&modelID, &provider); err != nil {
			return nil, err
		}
		out[modelID] = provider
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *FinanceRepositoryPG) revenueGroupedBy(ctx context.Context, w domain.Window, query string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx, query, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var name string
		var amount float64
		if err := rows.Scan(&name, &amount); err != nil {
			return nil, err
		}
		out[name] = amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanDaySums(rows pgx.Rows) (map[domain.Day]float64, error) {
	out := map[domain.Day]float64{}
	for rows.Next() {
		var day string
		var sum float64
		if err := rows.Scan(&day, &sum); err != nil {
			return nil, err
		}
		out[day] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isMissingRelation reports undefined-table or undefined-column errors, the
// shapes a partially migrated database produces.
func isMissingRelation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "42P01" || pgErr.Code == "42703"
}
