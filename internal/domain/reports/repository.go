package reports

import (
	"context"
	"time"

	"powderbook/internal/core/id"
)

// Repository defines report data access interface.
// All aggregation happens in SQL; the service layer only validates input
// and computes derived figures (cost/kg, percent deltas).
type Repository interface {
	// Dashboard
	GetKpis(ctx context.Context, companyID id.ID, monthStart time.Time) (*Kpis, error)
	GetInventoryByPowder(ctx context.Context, companyID id.ID) ([]InventoryRow, error)

	// Analysis
	GetUsageAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]UsageAnalysisRow, error)
	GetStockAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]StockAnalysisRow, error)

	// Period rollups over the consumption trail.
	// GetPeriodTotals returns total qty/cost for [from, to).
	GetPeriodTotals(ctx context.Context, companyID id.ID, from, to time.Time) (SummaryLine, error)
	GetPeriodByPowder(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error)
	GetPeriodBySupplier(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error)
	GetPeriodByMonth(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error)

	// Ledger integrity
	GetConservationCheck(ctx context.Context, companyID id.ID) (*ConservationCheck, error)
}
