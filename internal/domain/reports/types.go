// Package reports provides KPI and report aggregation over the stock
// ledger and the consumption trail.
package reports

import (
	"time"

	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// --- Dashboard KPIs ---

// Kpis is the dashboard headline block.
type Kpis struct {
	// TotalStockKg is the sum of qty_remaining over all batches.
	TotalStockKg types.Quantity `json:"totalStockKg"`

	// TotalStockValue is the sum of qty_remaining * rate_per_kg.
	TotalStockValue types.Money `json:"totalStockValue"`

	// UsedThisMonthKg is the usage quantity since the start of the
	// current month.
	UsedThisMonthKg types.Quantity `json:"usedThisMonthKg"`

	// UsedThisMonthCost is the FIFO cost of that usage.
	UsedThisMonthCost types.Money `json:"usedThisMonthCost"`
}

// InventoryRow is one powder in the grouped inventory view.
type InventoryRow struct {
	PowderID   id.ID          `json:"powderId" db:"powder_id"`
	PowderName string         `json:"powderName" db:"powder_name"`
	PowderCode string         `json:"powderCode" db:"powder_code"`
	BatchCount int            `json:"batchCount" db:"batch_count"`
	QtyKg      types.Quantity `json:"qtyKg" db:"qty_kg"`
	Value      types.Money    `json:"value" db:"value"`
}

// --- Analysis (windowed detail rows) ---

// AnalysisFilter selects rows for the usage/stock analysis views.
type AnalysisFilter struct {
	// PowderName filters by powder name substring (optional)
	PowderName string

	// Period; both optional
	FromDate *time.Time
	ToDate   *time.Time

	Limit  int
	Offset int
}

// UsageAnalysisRow is one usage record with its FIFO cost breakdown.
type UsageAnalysisRow struct {
	UsageID    id.ID          `json:"usageId" db:"usage_id"`
	Number     string         `json:"number" db:"number"`
	Date       time.Time      `json:"date" db:"date"`
	PowderName string         `json:"powderName" db:"powder_name"`
	ClientName string         `json:"clientName,omitempty" db:"client_name"`
	QtyKg      types.Quantity `json:"qtyKg" db:"qty_kg"`
	TotalCost  types.Money    `json:"totalCost" db:"total_cost"`
	CostPerKg  types.Money    `json:"costPerKg" db:"cost_per_kg"`
}

// StockAnalysisRow is one batch with receipt and consumption figures.
type StockAnalysisRow struct {
	BatchID      id.ID          `json:"batchId" db:"batch_id"`
	PowderName   string         `json:"powderName" db:"powder_name"`
	SupplierName string         `json:"supplierName" db:"supplier_name"`
	ReceivedAt   time.Time      `json:"receivedAt" db:"received_at"`
	QtyReceived  types.Quantity `json:"qtyReceived" db:"qty_received"`
	QtyRemaining types.Quantity `json:"qtyRemaining" db:"qty_remaining"`
	RatePerKg    types.Money    `json:"ratePerKg" db:"rate_per_kg"`
	Value        types.Money    `json:"value" db:"value"`
}

// --- Monthly / Annual summaries ---

// SummaryLine is a per-group rollup of FIFO-trail consumption.
type SummaryLine struct {
	Label     string         `json:"label" db:"label"`
	QtyKg     types.Quantity `json:"qtyKg" db:"qty_kg"`
	TotalCost types.Money    `json:"totalCost" db:"total_cost"`
	CostPerKg types.Money    `json:"costPerKg" db:"cost_per_kg"`
}

// MonthlySummary is the data behind the monthly report.
type MonthlySummary struct {
	Year  int `json:"year"`
	Month int `json:"month"`

	TotalQtyKg types.Quantity `json:"totalQtyKg"`
	TotalCost  types.Money    `json:"totalCost"`
	CostPerKg  types.Money    `json:"costPerKg"`

	// PctVsPrevious is the percent change of TotalCost vs the previous
	// month; nil when the previous month had no usage.
	PctVsPrevious *types.Money `json:"pctVsPrevious,omitempty"`

	ByPowder   []SummaryLine `json:"byPowder"`
	BySupplier []SummaryLine `json:"bySupplier"`
}

// AnnualSummary is the data behind the annual report.
type AnnualSummary struct {
	Year int `json:"year"`

	TotalQtyKg types.Quantity `json:"totalQtyKg"`
	TotalCost  types.Money    `json:"totalCost"`
	CostPerKg  types.Money    `json:"costPerKg"`

	// PctVsPrevious is the percent change of TotalCost vs the previous
	// year; nil when the previous year had no usage.
	PctVsPrevious *types.Money `json:"pctVsPrevious,omitempty"`

	ByPowder   []SummaryLine `json:"byPowder"`
	BySupplier []SummaryLine `json:"bySupplier"`
	ByMonth    []SummaryLine `json:"byMonth"`
}

// --- Ledger conservation ---

// ConservationCheck compares total consumed stock against the live trail.
// ConsumedKg must equal TrailKg on a healthy ledger.
type ConservationCheck struct {
	ConsumedKg types.Quantity `json:"consumedKg"`
	TrailKg    types.Quantity `json:"trailKg"`
}

// Balanced reports whether the ledger and the trail agree.
func (c ConservationCheck) Balanced() bool {
	return c.ConsumedKg.Equal(c.TrailKg)
}
