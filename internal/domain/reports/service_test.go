package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// fakeRepo serves canned period totals keyed by the period start date.
type fakeRepo struct {
	totals map[time.Time]SummaryLine

	kpis        *Kpis
	kpiMonth    time.Time
	inventory   []InventoryRow
	byPowder    []SummaryLine
	bySupplier  []SummaryLine
	byMonth     []SummaryLine
	usageRows   []UsageAnalysisRow
	stockRows   []StockAnalysisRow
	usageFilter AnalysisFilter
	check       *ConservationCheck
}

func (r *fakeRepo) GetKpis(ctx context.Context, companyID id.ID, monthStart time.Time) (*Kpis, error) {
	r.kpiMonth = monthStart
	return r.kpis, nil
}

func (r *fakeRepo) GetInventoryByPowder(ctx context.Context, companyID id.ID) ([]InventoryRow, error) {
	return r.inventory, nil
}

func (r *fakeRepo) GetUsageAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]UsageAnalysisRow, error) {
	r.usageFilter = filter
	return r.usageRows, nil
}

func (r *fakeRepo) GetStockAnalysis(ctx context.Context, companyID id.ID, filter AnalysisFilter) ([]StockAnalysisRow, error) {
	return r.stockRows, nil
}

func (r *fakeRepo) GetPeriodTotals(ctx context.Context, companyID id.ID, from, to time.Time) (SummaryLine, error) {
	if line, ok := r.totals[from]; ok {
		return line, nil
	}
	return SummaryLine{QtyKg: types.Zero(), TotalCost: types.Zero()}, nil
}

func (r *fakeRepo) GetPeriodByPowder(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error) {
	return r.byPowder, nil
}

func (r *fakeRepo) GetPeriodBySupplier(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error) {
	return r.bySupplier, nil
}

func (r *fakeRepo) GetPeriodByMonth(ctx context.Context, companyID id.ID, from, to time.Time) ([]SummaryLine, error) {
	return r.byMonth, nil
}

func (r *fakeRepo) GetConservationCheck(ctx context.Context, companyID id.ID) (*ConservationCheck, error) {
	return r.check, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthly_CostPerKgAndDelta(t *testing.T) {
	repo := &fakeRepo{
		totals: map[time.Time]SummaryLine{
			day(2026, time.August, 1): {QtyKg: types.MustQuantity("40"), TotalCost: types.MustMoney("220")},
			day(2026, time.July, 1):  {QtyKg: types.MustQuantity("50"), TotalCost: types.MustMoney("200")},
		},
	}
	svc := NewService(repo)

	sum, err := svc.Monthly(context.Background(), id.New(), 2026, 8)
	require.NoError(t, err)

	assert.Equal(t, "40", sum.TotalQtyKg.String())
	assert.Equal(t, "220", sum.TotalCost.String())
	// 220 / 40 = 5.5 per kg
	assert.True(t, sum.CostPerKg.Equal(types.MustMoney("5.5")), "got %s", sum.CostPerKg)
	// (220-200)/200 * 100 = +10%
	require.NotNil(t, sum.PctVsPrevious)
	assert.True(t, sum.PctVsPrevious.Equal(types.MustMoney("10")), "got %s", sum.PctVsPrevious)
}

func TestMonthly_NoPreviousPeriod(t *testing.T) {
	repo := &fakeRepo{
		totals: map[time.Time]SummaryLine{
			day(2026, time.January, 1): {QtyKg: types.MustQuantity("10"), TotalCost: types.MustMoney("55")},
		},
	}
	svc := NewService(repo)

	sum, err := svc.Monthly(context.Background(), id.New(), 2026, 1)
	require.NoError(t, err)
	assert.Nil(t, sum.PctVsPrevious)
}

func TestMonthly_EmptyMonth(t *testing.T) {
	svc := NewService(&fakeRepo{totals: map[time.Time]SummaryLine{}})

	sum, err := svc.Monthly(context.Background(), id.New(), 2026, 3)
	require.NoError(t, err)
	assert.True(t, sum.TotalQtyKg.IsZero())
	assert.True(t, sum.CostPerKg.IsZero())
	assert.Nil(t, sum.PctVsPrevious)
}

func TestMonthly_RejectsBadMonth(t *testing.T) {
	svc := NewService(&fakeRepo{})

	_, err := svc.Monthly(context.Background(), id.New(), 2026, 13)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.Monthly(context.Background(), id.New(), 2026, 0)
	require.Error(t, err)
}

func TestAnnual_DeltaVsPreviousYear(t *testing.T) {
	repo := &fakeRepo{
		totals: map[time.Time]SummaryLine{
			day(2026, time.January, 1): {QtyKg: types.MustQuantity("500"), TotalCost: types.MustMoney("2750")},
			day(2025, time.January, 1): {QtyKg: types.MustQuantity("400"), TotalCost: types.MustMoney("2200")},
		},
		byMonth: []SummaryLine{
			{Label: "2026-01", QtyKg: types.MustQuantity("500"), TotalCost: types.MustMoney("2750")},
		},
	}
	svc := NewService(repo)

	sum, err := svc.Annual(context.Background(), id.New(), 2026)
	require.NoError(t, err)

	assert.True(t, sum.CostPerKg.Equal(types.MustMoney("5.5")), "got %s", sum.CostPerKg)
	require.NotNil(t, sum.PctVsPrevious)
	// (2750-2200)/2200 * 100 = 25%
	assert.True(t, sum.PctVsPrevious.Equal(types.MustMoney("25")), "got %s", sum.PctVsPrevious)
	assert.Len(t, sum.ByMonth, 1)
}

func TestKpis_UsesCurrentMonthStart(t *testing.T) {
	repo := &fakeRepo{kpis: &Kpis{TotalStockKg: types.MustQuantity("120")}}
	svc := NewService(repo)
	svc.now = func() time.Time { return day(2026, time.September, 17) }

	kpis, err := svc.Kpis(context.Background(), id.New())
	require.NoError(t, err)
	assert.Equal(t, "120", kpis.TotalStockKg.String())
	assert.Equal(t, day(2026, time.September, 1), repo.kpiMonth)
}

func TestUsageAnalysis_WindowValidationAndClamp(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	from := day(2026, time.June, 1)
	to := day(2026, time.May, 1)
	_, err := svc.UsageAnalysis(context.Background(), id.New(), AnalysisFilter{FromDate: &from, ToDate: &to})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.UsageAnalysis(context.Background(), id.New(), AnalysisFilter{Limit: 100000})
	require.NoError(t, err)
	assert.Equal(t, 1000, repo.usageFilter.Limit)
}

func TestConservationCheck(t *testing.T) {
	repo := &fakeRepo{check: &ConservationCheck{
		ConsumedKg: types.MustQuantity("37.5"),
		TrailKg:    types.MustQuantity("37.5"),
	}}
	svc := NewService(repo)

	check, err := svc.CheckConservation(context.Background(), id.New())
	require.NoError(t, err)
	assert.True(t, check.Balanced())

	check.TrailKg = types.MustQuantity("37.4")
	assert.False(t, check.Balanced())
}
