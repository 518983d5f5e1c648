package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
)

func makeBatch(powderID id.ID, remaining, received, rate string, day int) ledger.StockBatch {
	b := ledger.NewStockBatch(
		id.New(), powderID, id.New(),
		types.MustQuantity(received),
		types.MustMoney(rate),
		time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
	)
	b.QtyRemaining = types.MustQuantity(remaining)
	return b
}

func TestPlan_OldestFirst(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "10", "10", "5.00", 1),
		makeBatch(powderID, "10", "10", "7.00", 2),
		makeBatch(powderID, "10", "10", "9.00", 3),
	}

	lines, total, err := Plan(powderID, batches, types.MustQuantity("25"))
	require.NoError(t, err)
	require.Len(t, lines, 3)

	assert.Equal(t, batches[0].ID, lines[0].BatchID)
	assert.True(t, lines[0].QtyUsed.Equal(types.MustQuantity("10")))
	assert.True(t, lines[0].RatePerKg.Equal(types.MustMoney("5.00")))

	assert.Equal(t, batches[1].ID, lines[1].BatchID)
	assert.True(t, lines[1].QtyUsed.Equal(types.MustQuantity("10")))

	assert.Equal(t, batches[2].ID, lines[2].BatchID)
	assert.True(t, lines[2].QtyUsed.Equal(types.MustQuantity("5")))

	// 10*5 + 10*7 + 5*9 = 165
	assert.True(t, total.Equal(types.MustMoney("165")), "total = %s", total)
}

func TestPlan_SingleBatchPartial(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "10", "10", "4.50", 1),
		makeBatch(powderID, "10", "10", "6.00", 2),
	}

	lines, total, err := Plan(powderID, batches, types.MustQuantity("3.5"))
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, batches[0].ID, lines[0].BatchID)
	assert.True(t, lines[0].QtyUsed.Equal(types.MustQuantity("3.5")))
	assert.True(t, total.Equal(types.MustMoney("15.75")), "total = %s", total)
}

func TestPlan_ExactlyDrainsAll(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "2.5", "10", "5.00", 1),
		makeBatch(powderID, "7.5", "7.5", "6.00", 2),
	}

	lines, total, err := Plan(powderID, batches, types.MustQuantity("10"))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.True(t, lines[0].QtyUsed.Equal(types.MustQuantity("2.5")))
	assert.True(t, lines[1].QtyUsed.Equal(types.MustQuantity("7.5")))
	// 2.5*5 + 7.5*6 = 57.5
	assert.True(t, total.Equal(types.MustMoney("57.5")), "total = %s", total)
}

func TestPlan_SkipsDrainedBatches(t *testing.T) {
	powderID := id.New()
	drained := makeBatch(powderID, "0", "10", "3.00", 1)
	batches := []ledger.StockBatch{
		drained,
		makeBatch(powderID, "5", "5", "8.00", 2),
	}

	lines, _, err := Plan(powderID, batches, types.MustQuantity("4"))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.NotEqual(t, drained.ID, lines[0].BatchID)
}

func TestPlan_InsufficientStock(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "3", "10", "5.00", 1),
		makeBatch(powderID, "4", "4", "6.00", 2),
	}

	lines, _, err := Plan(powderID, batches, types.MustQuantity("7.001"))
	require.Error(t, err)
	assert.Nil(t, lines)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "7.001", appErr.Details["requested"])
	assert.Equal(t, "7", appErr.Details["available"])
}

func TestPlan_NoBatches(t *testing.T) {
	powderID := id.New()

	_, _, err := Plan(powderID, nil, types.MustQuantity("1"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
}

func TestPlan_RejectsNonPositiveQuantity(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "10", "10", "5.00", 1),
	}

	for _, qty := range []string{"0", "-1"} {
		_, _, err := Plan(powderID, batches, types.MustQuantity(qty))
		require.Error(t, err, "qty=%s", qty)
		assert.True(t, apperror.IsCode(err, apperror.CodeValidation), "qty=%s", qty)
	}
}

func TestPlan_DecimalPrecision(t *testing.T) {
	powderID := id.New()
	batches := []ledger.StockBatch{
		makeBatch(powderID, "0.1", "0.1", "12.55", 1),
		makeBatch(powderID, "0.2", "0.2", "12.55", 2),
	}

	lines, total, err := Plan(powderID, batches, types.MustQuantity("0.3"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	// 0.3 * 12.55 must come out exact, not 3.7649999...
	assert.True(t, total.Equal(types.MustMoney("3.765")), "total = %s", total)
}
