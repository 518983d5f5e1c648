package reports

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// Service provides report generation operations.
type Service struct {
	repo Repository

	// now is injectable for tests
	now func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Kpis returns the dashboard headline figures.
func (s *Service) Kpis(ctx context.Context, companyID id.ID) (*Kpis, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	kpis, err := s.repo.GetKpis(ctx, companyID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("get kpis: %w", err)
	}
	return kpis, nil
}

// InventoryByPowder returns remaining stock grouped by powder.
func (s *Service) InventoryByPowder(ctx context.Context, companyID id.ID) ([]InventoryRow, error) {
	rows, err := s.repo.GetInventoryByPowder(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get inventory: %w", err)
	}
	return rows, nil
}

// UsageAnalysis returns windowed usage rows for the analysis view.
func (s *Service) UsageAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]UsageAnalysisRow, error) {
	if err := validateWindow(filter); err != nil {
		return nil, err
	}
	clampPagination(&filter)

	rows, err := s.repo.GetUsageAnalysis(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("get usage analysis: %w", err)
	}
	return rows, nil
}

// StockAnalysis returns windowed batch rows for the analysis view.
func (s *Service) StockAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]StockAnalysisRow, error) {
	if err := validateWindow(filter); err != nil {
		return nil, err
	}
	clampPagination(&filter)

	rows, err := s.repo.GetStockAnalysis(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("get stock analysis: %w", err)
	}
	return rows, nil
}

// Monthly builds the monthly consumption summary for year/month,
// including the percent delta against the previous month.
func (s *Service) Monthly(ctx context.Context, companyID id.ID, year, month int) (*MonthlySummary, error) {
	if year < 2000 || year > 2100 {
		return nil, apperror.NewValidation("year out of range").WithDetail("year", year)
	}
	if month < 1 || month > 12 {
		return nil, apperror.NewValidation("month must be 1..12").WithDetail("month", month)
	}

	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	prevFrom := from.AddDate(0, -1, 0)

	totals, err := s.repo.GetPeriodTotals(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	prev, err := s.repo.GetPeriodTotals(ctx, companyID, prevFrom, from)
	if err != nil {
		return nil, fmt.Errorf("previous month totals: %w", err)
	}

	byPowder, err := s.repo.GetPeriodByPowder(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly by powder: %w", err)
	}
	bySupplier, err := s.repo.GetPeriodBySupplier(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("monthly by supplier: %w", err)
	}

	return &MonthlySummary{
		Year:          year,
		Month:         month,
		TotalQtyKg:    totals.QtyKg,
		TotalCost:     totals.TotalCost,
		CostPerKg:     costPerKg(totals),
		PctVsPrevious: pctDelta(totals.TotalCost, prev.TotalCost),
		ByPowder:      byPowder,
		BySupplier:    bySupplier,
	}, nil
}

// Annual builds the annual consumption summary for a year, including the
// per-month breakdown and the percent delta against the previous year.
func (s *Service) Annual(ctx context.Context, companyID id.ID, year int) (*AnnualSummary, error) {
	if year < 2000 || year > 2100 {
		return nil, apperror.NewValidation("year out of range").WithDetail("year", year)
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	prevFrom := from.AddDate(-1, 0, 0)

	totals, err := s.repo.GetPeriodTotals(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("annual totals: %w", err)
	}
	prev, err := s.repo.GetPeriodTotals(ctx, companyID, prevFrom, from)
	if err != nil {
		return nil, fmt.Errorf("previous year totals: %w", err)
	}

	byPowder, err := s.repo.GetPeriodByPowder(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("annual by powder: %w", err)
	}
	bySupplier, err := s.repo.GetPeriodBySupplier(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("annual by supplier: %w", err)
	}
	byMonth, err := s.repo.GetPeriodByMonth(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("annual by month: %w", err)
	}

	return &AnnualSummary{
		Year:          year,
		TotalQtyKg:    totals.QtyKg,
		TotalCost:     totals.TotalCost,
		CostPerKg:     costPerKg(totals),
		PctVsPrevious: pctDelta(totals.TotalCost, prev.TotalCost),
		ByPowder:      byPowder,
		BySupplier:    bySupplier,
		ByMonth:       byMonth,
	}, nil
}

// CheckConservation verifies that total consumed stock equals the live
// trail. A mismatch means the ledger is corrupted.
func (s *Service) CheckConservation(ctx context.Context, companyID id.ID) (*ConservationCheck, error) {
	check, err := s.repo.GetConservationCheck(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("conservation check: %w", err)
	}
	return check, nil
}

func validateWindow(filter AnalysisFilter) error {
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return apperror.NewValidation("fromDate must not be after toDate")
	}
	return nil
}

func clampPagination(filter *AnalysisFilter) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
}

func costPerKg(line SummaryLine) types.Money {
	if line.QtyKg.IsZero() {
		return types.Zero()
	}
	return line.TotalCost.DivRound(line.QtyKg, 4)
}

// pctDelta returns 100*(cur-prev)/prev, or nil when prev is zero.
func pctDelta(cur, prev types.Money) *types.Money {
	if prev.IsZero() {
		return nil
	}
	pct := cur.Sub(prev).DivRound(prev, 4).Mul(types.MustMoney("100"))
	return &pct
}
