// Package allocation implements FIFO stock consumption: a usage draws from
// the oldest batches first and leaves a trail of (batch, qty, rate) entries
// precise enough to reverse the consumption exactly.
package allocation

import (
	"context"

	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// TrailEntry records how much a usage drew from one batch, with the batch
// rate snapshotted at allocation time. Reversal replays these entries.
type TrailEntry struct {
	ID        id.ID          `db:"id" json:"id"`
	CompanyID id.ID          `db:"company_id" json:"companyId"`
	UsageID   id.ID          `db:"usage_id" json:"usageId"`
	BatchID   id.ID          `db:"stock_batch_id" json:"stockBatchId"`
	QtyUsed   types.Quantity `db:"qty_used" json:"qtyUsed"`
	RatePerKg types.Money    `db:"rate_per_kg" json:"ratePerKg"`
}

// Cost is the entry's contribution to the usage total.
func (e TrailEntry) Cost() types.Money {
	return e.QtyUsed.Mul(e.RatePerKg)
}

// TrailRepository defines storage operations for consumption trail entries.
type TrailRepository interface {
	// CreateEntries bulk inserts trail entries
	CreateEntries(ctx context.Context, entries []TrailEntry) error

	// ListByUsage retrieves all entries of a usage
	ListByUsage(ctx context.Context, companyID, usageID id.ID) ([]TrailEntry, error)

	// DeleteByUsage removes all entries of a usage
	DeleteByUsage(ctx context.Context, companyID, usageID id.ID) error
}
