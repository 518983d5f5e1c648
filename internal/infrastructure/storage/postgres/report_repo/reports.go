// Package report_repo provides the PostgreSQL implementation of report
// aggregation. All rollups happen in SQL over the stock ledger and the
// consumption trail; costs always come from the trail's rate snapshots.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"powderbook/internal/core/id"
	"powderbook/internal/domain/reports"
	"powderbook/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReportRepo creates a new report repository.
func NewReportRepo(txManager *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetKpis returns the dashboard headline figures.
func (r *ReportRepo) GetKpis(ctx context.Context, companyID id.ID, monthStart time.Time) (*reports.Kpis, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(qty_remaining) FROM stock_batches WHERE company_id = $1), 0) AS total_stock_kg,
			COALESCE((SELECT SUM(qty_remaining * rate_per_kg) FROM stock_batches WHERE company_id = $1), 0) AS total_stock_value,
			COALESCE((SELECT SUM(quantity_kg) FROM usages WHERE company_id = $1 AND date >= $2), 0) AS used_this_month_kg,
			COALESCE((SELECT SUM(total_cost) FROM usages WHERE company_id = $1 AND date >= $2), 0) AS used_this_month_cost
	`

	var kpis reports.Kpis
	q := r.txManager.GetQuerier(ctx)
	err := q.QueryRow(ctx, query, companyID, monthStart).Scan(
		&kpis.TotalStockKg, &kpis.TotalStockValue,
		&kpis.UsedThisMonthKg, &kpis.UsedThisMonthCost,
	)
	if err != nil {
		return nil, fmt.Errorf("query kpis: %w", err)
	}
	return &kpis, nil
}

// GetInventoryByPowder returns current stock grouped by powder. Powders
// with nothing remaining are omitted.
func (r *ReportRepo) GetInventoryByPowder(ctx context.Context, companyID id.ID) ([]reports.InventoryRow, error) {
	query := `
		SELECT
			b.powder_id,
			p.name AS powder_name,
			p.code AS powder_code,
			COUNT(*) AS batch_count,
			SUM(b.qty_remaining) AS qty_kg,
			SUM(b.qty_remaining * b.rate_per_kg) AS value
		FROM stock_batches b
		JOIN cat_powders p ON p.id = b.powder_id AND p.company_id = b.company_id
		WHERE b.company_id = $1 AND b.qty_remaining > 0
		GROUP BY b.powder_id, p.name, p.code
		ORDER BY p.name
	`

	var rows []reports.InventoryRow
	q := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, q, &rows, query, companyID); err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return rows, nil
}

// GetUsageAnalysis returns usage records with their FIFO cost figures.
func (r *ReportRepo) GetUsageAnalysis(ctx context.Context, companyID id.ID, filter reports.AnalysisFilter) ([]reports.UsageAnalysisRow, error) {
	q := r.builder.
		Select(
			"u.id AS usage_id",
			"u.number",
			"u.date",
			"p.name AS powder_name",
			"COALESCE(c.name, '') AS client_name",
			"u.quantity_kg AS qty_kg",
			"u.total_cost",
			"CASE WHEN u.quantity_kg > 0 THEN u.total_cost / u.quantity_kg ELSE 0 END AS cost_per_kg",
		).
		From("usages u").
		Join("cat_powders p ON p.id = u.powder_id AND p.company_id = u.company_id").
		LeftJoin("cat_clients c ON c.id = u.client_id AND c.company_id = u.company_id").
		Where(squirrel.Eq{"u.company_id": companyID})

	q = applyAnalysisFilter(q, filter, "u.date")

	sql, args, err := q.OrderBy("u.date DESC", "u.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.UsageAnalysisRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query usage analysis: %w", err)
	}
	return rows, nil
}

// GetStockAnalysis returns batches with receipt and consumption figures.
func (r *ReportRepo) GetStockAnalysis(ctx context.Context, companyID id.ID, filter reports.AnalysisFilter) ([]reports.StockAnalysisRow, error) {
	q := r.builder.
		Select(
			"b.id AS batch_id",
			"p.name AS powder_name",
			"s.name AS supplier_name",
			"b.received_at",
			"b.qty_received",
			"b.qty_remaining",
			"b.rate_per_kg",
			"b.qty_remaining * b.rate_per_kg AS value",
		).
		From("stock_batches b").
		Join("cat_powders p ON p.id = b.powder_id AND p.company_id = b.company_id").
		Join("cat_suppliers s ON s.id = b.supplier_id AND s.company_id = b.company_id").
		Where(squirrel.Eq{"b.company_id": companyID})

	q = applyAnalysisFilter(q, filter, "b.received_at")

	sql, args, err := q.OrderBy("b.received_at DESC", "b.id DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []reports.StockAnalysisRow
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("query stock analysis: %w", err)
	}
	return rows, nil
}

func applyAnalysisFilter(q squirrel.SelectBuilder, filter reports.AnalysisFilter, dateCol string) squirrel.SelectBuilder {
	if filter.PowderName != "" {
		q = q.Where(squirrel.ILike{"p.name": "%" + filter.PowderName + "%"})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{dateCol: *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{dateCol: *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

// GetPeriodTotals returns total consumption in [from, to). The window is
// taken from the usage date, the amounts from the trail rate snapshots.
func (r *ReportRepo) GetPeriodTotals(ctx context.Context, companyID id.ID, from, to time.Time) (reports.SummaryLine, error) {
	query := `
		SELECT
			COALESCE(SUM(t.qty_used), 0) AS qty_kg,
			COALESCE(SUM(t.qty_used * t.rate_per_kg), 0) AS total_cost
		FROM usage_trail t
		JOIN usages u ON u.id = t.usage_id AND u.company_id = t.company_id
		WHERE t.company_id = $1 AND u.date >= $2 AND u.date < $3
	`

	var line reports.SummaryLine
	q := r.txManager.GetQuerier(ctx)
	err := q.QueryRow(ctx, query, companyID, from, to).Scan(&line.QtyKg, &line.TotalCost)
	if err != nil {
		return line, fmt.Errorf("query period totals: %w", err)
	}
	return line, nil
}

// GetPeriodByPowder returns consumption in [from, to) grouped by powder.
func (r *ReportRepo) GetPeriodByPowder(ctx context.Context, companyID id.ID, from, to time.Time) ([]reports.SummaryLine, error) {
	query := `
		SELECT
			p.name AS label,
			SUM(t.qty_used) AS qty_kg,
			SUM(t.qty_used * t.rate_per_kg) AS total_cost,
			SUM(t.qty_used * t.rate_per_kg) / SUM(t.qty_used) AS cost_per_kg
		FROM usage_trail t
		JOIN usages u ON u.id = t.usage_id AND u.company_id = t.company_id
		JOIN cat_powders p ON p.id = u.powder_id AND p.company_id = u.company_id
		WHERE t.company_id = $1 AND u.date >= $2 AND u.date < $3
		GROUP BY p.name
		ORDER BY total_cost DESC
	`

	return r.queryLines(ctx, query, companyID, from, to)
}

// GetPeriodBySupplier returns consumption in [from, to) grouped by the
// supplier of the consumed batches.
func (r *ReportRepo) GetPeriodBySupplier(ctx context.Context, companyID id.ID, from, to time.Time) ([]reports.SummaryLine, error) {
	query := `
		SELECT
			s.name AS label,
			SUM(t.qty_used) AS qty_kg,
			SUM(t.qty_used * t.rate_per_kg) AS total_cost,
			SUM(t.qty_used * t.rate_per_kg) / SUM(t.qty_used) AS cost_per_kg
		FROM usage_trail t
		JOIN usages u ON u.id = t.usage_id AND u.company_id = t.company_id
		JOIN stock_batches b ON b.id = t.stock_batch_id AND b.company_id = t.company_id
		JOIN cat_suppliers s ON s.id = b.supplier_id AND s.company_id = b.company_id
		WHERE t.company_id = $1 AND u.date >= $2 AND u.date < $3
		GROUP BY s.name
		ORDER BY total_cost DESC
	`

	return r.queryLines(ctx, query, companyID, from, to)
}

// GetPeriodByMonth returns consumption in [from, to) grouped by calendar
// month, oldest first. Labels are YYYY-MM.
func (r *ReportRepo) GetPeriodByMonth(ctx context.Context, companyID id.ID, from, to time.Time) ([]reports.SummaryLine, error) {
	query := `
		SELECT
			to_char(date_trunc('month', u.date), 'YYYY-MM') AS label,
			SUM(t.qty_used) AS qty_kg,
			SUM(t.qty_used * t.rate_per_kg) AS total_cost,
			SUM(t.qty_used * t.rate_per_kg) / SUM(t.qty_used) AS cost_per_kg
		FROM usage_trail t
		JOIN usages u ON u.id = t.usage_id AND u.company_id = t.company_id
		WHERE t.company_id = $1 AND u.date >= $2 AND u.date < $3
		GROUP BY date_trunc('month', u.date)
		ORDER BY date_trunc('month', u.date)
	`

	return r.queryLines(ctx, query, companyID, from, to)
}

func (r *ReportRepo) queryLines(ctx context.Context, query string, companyID id.ID, from, to time.Time) ([]reports.SummaryLine, error) {
	var lines []reports.SummaryLine
	q := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, q, &lines, query, companyID, from, to); err != nil {
		return nil, fmt.Errorf("query period lines: %w", err)
	}
	return lines, nil
}

// GetConservationCheck compares total consumed stock against the live
// trail. On a healthy ledger the two sums are identical.
func (r *ReportRepo) GetConservationCheck(ctx context.Context, companyID id.ID) (*reports.ConservationCheck, error) {
	query := `
		SELECT
			COALESCE((SELECT SUM(qty_received - qty_remaining) FROM stock_batches WHERE company_id = $1), 0) AS consumed_kg,
			COALESCE((SELECT SUM(qty_used) FROM usage_trail WHERE company_id = $1), 0) AS trail_kg
	`

	var check reports.ConservationCheck
	q := r.txManager.GetQuerier(ctx)
	err := q.QueryRow(ctx, query, companyID).Scan(&check.ConsumedKg, &check.TrailKg)
	if err != nil {
		return nil, fmt.Errorf("query conservation check: %w", err)
	}
	return &check, nil
}

// Ensure interface compliance.
var _ reports.Repository = (*ReportRepo)(nil)
