package allocation

import (
	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
)

// Line is one step of a consumption plan: draw QtyUsed from BatchID at the
// batch's rate.
type Line struct {
	BatchID   id.ID
	QtyUsed   types.Quantity
	RatePerKg types.Money
}

// Cost is the line's contribution to the total.
func (l Line) Cost() types.Money {
	return l.QtyUsed.Mul(l.RatePerKg)
}

// Plan computes a FIFO consumption plan over batches already ordered oldest
// first (received_at ASC, id ASC). Each step takes min(batch remaining,
// still needed); the total cost is the sum of qty*rate over the steps.
//
// If the batches cannot cover the requested quantity the whole plan is
// rejected with INSUFFICIENT_STOCK: partial consumption is never planned.
func Plan(powderID id.ID, batches []ledger.StockBatch, qty types.Quantity) ([]Line, types.Money, error) {
	if !qty.IsPositive() {
		return nil, types.Zero(), apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantityKg")
	}

	available := types.Zero()
	for _, b := range batches {
		available = available.Add(b.QtyRemaining)
	}
	if available.LessThan(qty) {
		return nil, types.Zero(), apperror.NewInsufficientStock(powderID.String(), qty.String(), available.String())
	}

	var lines []Line
	total := types.Zero()
	remaining := qty

	for _, b := range batches {
		if !remaining.IsPositive() {
			break
		}
		if !b.QtyRemaining.IsPositive() {
			continue
		}

		take := types.MinQuantity(b.QtyRemaining, remaining)
		lines = append(lines, Line{
			BatchID:   b.ID,
			QtyUsed:   take,
			RatePerKg: b.RatePerKg,
		})
		total = total.Add(take.Mul(b.RatePerKg))
		remaining = remaining.Sub(take)
	}

	return lines, total, nil
}
