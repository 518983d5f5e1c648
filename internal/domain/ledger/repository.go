package ledger

import (
	"context"
	"errors"
	"time"

	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// Adjustment guard sentinels. The repository's AdjustRemaining refuses any
// delta that would take qty_remaining outside [0, qty_received]; the caller
// maps them to domain errors (insufficient stock vs ledger corruption).
var (
	ErrAdjustBelowZero     = errors.New("adjustment would take remaining quantity below zero")
	ErrAdjustAboveReceived = errors.New("adjustment would take remaining quantity above received")
)

// BatchFilter narrows batch listings.
type BatchFilter struct {
	PowderID      *id.ID
	SupplierID    *id.ID
	OnlyAvailable bool // qty_remaining > 0
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}

// Repository defines storage operations for stock batches.
type Repository interface {
	// Create inserts a new batch
	Create(ctx context.Context, batch *StockBatch) error

	// GetByID retrieves a batch within a company
	GetByID(ctx context.Context, companyID, batchID id.ID) (StockBatch, error)

	// GetForUpdate retrieves a batch with a row lock
	GetForUpdate(ctx context.Context, companyID, batchID id.ID) (StockBatch, error)

	// Update rewrites batch fields (optimistic locking on version).
	// Callers must have verified the batch is still untouched.
	Update(ctx context.Context, batch *StockBatch) error

	// Delete physically removes a batch.
	// Callers must have verified the batch is still untouched.
	Delete(ctx context.Context, companyID, batchID id.ID) error

	// List retrieves batches ordered by received_at DESC for display
	List(ctx context.Context, companyID id.ID, filter BatchFilter) ([]StockBatch, int64, error)

	// ListAvailableForUpdate locks and returns all batches of a
	// powder+supplier with qty_remaining > 0, ordered oldest first
	// (received_at ASC, id ASC). Must run inside a transaction.
	ListAvailableForUpdate(ctx context.Context, companyID, powderID, supplierID id.ID) ([]StockBatch, error)

	// AdjustRemaining applies a signed delta to qty_remaining with a SQL-level
	// range guard. Returns ErrAdjustBelowZero or ErrAdjustAboveReceived when
	// the guard rejects the delta.
	AdjustRemaining(ctx context.Context, companyID, batchID id.ID, delta types.Quantity) error

	// TotalAvailable sums qty_remaining over all batches of a powder,
	// optionally narrowed to one supplier
	TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error)
}
