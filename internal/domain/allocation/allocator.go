package allocation

import (
	"context"
	"errors"
	"fmt"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
	"powderbook/pkg/logger"
)

// Allocator consumes and restores batch quantities for usages.
// All methods must run inside a transaction owned by the caller: the batch
// locks taken by ListAvailableForUpdate hold until that transaction ends.
type Allocator struct {
	batches ledger.Repository
	trail   TrailRepository
}

// NewAllocator creates a new allocator.
func NewAllocator(batches ledger.Repository, trail TrailRepository) *Allocator {
	return &Allocator{
		batches: batches,
		trail:   trail,
	}
}

// Allocate draws qty from the oldest batches of a powder+supplier first,
// decrements each touched batch and writes the consumption trail for
// usageID. Returns the trail entries and the total cost.
//
// If total remaining stock cannot cover qty, nothing is consumed and
// INSUFFICIENT_STOCK is returned.
func (a *Allocator) Allocate(ctx context.Context, companyID, powderID, supplierID, usageID id.ID, qty types.Quantity) ([]TrailEntry, types.Money, error) {
	batches, err := a.batches.ListAvailableForUpdate(ctx, companyID, powderID, supplierID)
	if err != nil {
		return nil, types.Zero(), fmt.Errorf("lock batches: %w", err)
	}

	lines, total, err := Plan(powderID, batches, qty)
	if err != nil {
		return nil, types.Zero(), err
	}

	entries := make([]TrailEntry, 0, len(lines))
	for _, line := range lines {
		if err := a.batches.AdjustRemaining(ctx, companyID, line.BatchID, line.QtyUsed.Neg()); err != nil {
			// Batches are locked, so the guard can only fire if the plan and
			// the ledger disagree.
			if errors.Is(err, ledger.ErrAdjustBelowZero) {
				return nil, types.Zero(), apperror.NewLedgerCorruption(line.BatchID.String(),
					"planned consumption exceeds batch remaining quantity")
			}
			return nil, types.Zero(), fmt.Errorf("decrement batch %s: %w", line.BatchID, err)
		}

		entries = append(entries, TrailEntry{
			ID:        id.New(),
			CompanyID: companyID,
			UsageID:   usageID,
			BatchID:   line.BatchID,
			QtyUsed:   line.QtyUsed,
			RatePerKg: line.RatePerKg,
		})
	}

	if err := a.trail.CreateEntries(ctx, entries); err != nil {
		return nil, types.Zero(), fmt.Errorf("write trail: %w", err)
	}

	logger.Debug(ctx, "stock allocated",
		"usage_id", usageID,
		"powder_id", powderID,
		"qty_kg", qty.String(),
		"batches", len(entries),
	)

	return entries, total, nil
}

// Reverse restores every batch touched by a usage by exactly the recorded
// trail quantities, then deletes the trail. Returns the restored quantity.
//
// If an increment would push a batch above its received quantity the ledger
// and the trail disagree: the error carries LEDGER_CORRUPTION and the
// surrounding transaction must roll back. Quantities are never clamped.
func (a *Allocator) Reverse(ctx context.Context, companyID, usageID id.ID) (types.Quantity, error) {
	entries, err := a.trail.ListByUsage(ctx, companyID, usageID)
	if err != nil {
		return types.Zero(), fmt.Errorf("load trail: %w", err)
	}

	restored := types.Zero()
	for _, e := range entries {
		if err := a.batches.AdjustRemaining(ctx, companyID, e.BatchID, e.QtyUsed); err != nil {
			if errors.Is(err, ledger.ErrAdjustAboveReceived) {
				return types.Zero(), apperror.NewLedgerCorruption(e.BatchID.String(),
					"trail reversal exceeds batch received quantity")
			}
			return types.Zero(), fmt.Errorf("restore batch %s: %w", e.BatchID, err)
		}
		restored = restored.Add(e.QtyUsed)
	}

	if err := a.trail.DeleteByUsage(ctx, companyID, usageID); err != nil {
		return types.Zero(), fmt.Errorf("delete trail: %w", err)
	}

	logger.Debug(ctx, "allocation reversed",
		"usage_id", usageID,
		"restored_kg", restored.String(),
		"batches", len(entries),
	)

	return restored, nil
}

// Trail returns the consumption trail of a usage without modifying anything.
func (a *Allocator) Trail(ctx context.Context, companyID, usageID id.ID) ([]TrailEntry, error) {
	return a.trail.ListByUsage(ctx, companyID, usageID)
}
