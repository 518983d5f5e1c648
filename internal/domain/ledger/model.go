// Package ledger provides the stock batch ledger: every receipt of powder
// becomes a batch whose remaining quantity is drawn down by usage.
package ledger

import (
	"context"
	"time"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// StockBatch is a single receipt of powder at a fixed rate.
// QtyRemaining starts equal to QtyReceived and only moves through
// allocation and reversal; it never leaves [0, QtyReceived].
type StockBatch struct {
	entity.BaseDocument

	PowderID   id.ID `db:"powder_id" json:"powderId"`
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// QtyReceived is immutable once any consumption exists
	QtyReceived  types.Quantity `db:"qty_received" json:"qtyReceived"`
	QtyRemaining types.Quantity `db:"qty_remaining" json:"qtyRemaining"`

	// RatePerKg is the purchase price snapshot for this batch
	RatePerKg types.Money `db:"rate_per_kg" json:"ratePerKg"`

	// ReceivedAt orders batches for FIFO consumption
	ReceivedAt time.Time `db:"received_at" json:"receivedAt"`

	// PurchaseOrderID links batches created by an order delivery (nullable)
	PurchaseOrderID *id.ID `db:"purchase_order_id" json:"purchaseOrderId,omitempty"`

	Note string `db:"note" json:"note,omitempty"`
}

// NewStockBatch creates a batch with full remaining quantity.
func NewStockBatch(companyID, powderID, supplierID id.ID, qty types.Quantity, rate types.Money, receivedAt time.Time) StockBatch {
	return StockBatch{
		BaseDocument: entity.NewBaseDocument(companyID),
		PowderID:     powderID,
		SupplierID:   supplierID,
		QtyReceived:  qty,
		QtyRemaining: qty,
		RatePerKg:    rate,
		ReceivedAt:   receivedAt,
	}
}

// Validate implements entity.Validatable.
func (b *StockBatch) Validate(ctx context.Context) error {
	if id.IsNil(b.CompanyID) {
		return apperror.NewValidation("company is required").
			WithDetail("field", "companyId")
	}
	if id.IsNil(b.PowderID) {
		return apperror.NewValidation("powder is required").
			WithDetail("field", "powderId")
	}
	if id.IsNil(b.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if !b.QtyReceived.IsPositive() {
		return apperror.NewValidation("received quantity must be positive").
			WithDetail("field", "qtyReceived")
	}
	if !b.RatePerKg.IsPositive() {
		return apperror.NewValidation("rate per kg must be positive").
			WithDetail("field", "ratePerKg")
	}
	if b.ReceivedAt.IsZero() {
		return apperror.NewValidation("received date is required").
			WithDetail("field", "receivedAt")
	}
	if b.QtyRemaining.IsNegative() || b.QtyRemaining.GreaterThan(b.QtyReceived) {
		return apperror.NewValidation("remaining quantity out of range").
			WithDetail("field", "qtyRemaining")
	}
	return nil
}

// IsEditable reports whether nothing has been consumed from the batch.
// Only untouched batches may be edited or deleted.
func (b *StockBatch) IsEditable() bool {
	return b.QtyRemaining.Equal(b.QtyReceived)
}

// ConsumedQty is the quantity already drawn from the batch.
func (b *StockBatch) ConsumedQty() types.Quantity {
	return b.QtyReceived.Sub(b.QtyRemaining)
}

// RemainingValue is the purchase value of the unconsumed quantity.
func (b *StockBatch) RemainingValue() types.Money {
	return b.QtyRemaining.Mul(b.RatePerKg)
}
