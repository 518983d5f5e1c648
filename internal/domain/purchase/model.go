// Package purchase provides purchase order tracking: orders are placed with
// a supplier, then either cancelled or delivered. Delivery turns every order
// line into a stock batch.
package purchase

import (
	"context"
	"time"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// Order statuses. An order starts OPEN and ends in exactly one of
// CANCELLED or COMPLETED; closed orders never reopen.
const (
	StatusOpen      = "OPEN"
	StatusCancelled = "CANCELLED"
	StatusCompleted = "COMPLETED"
)

// History event kinds.
const (
	HistoryCreated   = "CREATED"
	HistoryCancelled = "CANCELLED"
	HistoryDelivered = "DELIVERED"
)

// Order is a purchase order with its lines.
type Order struct {
	entity.Document

	SupplierID id.ID  `db:"supplier_id" json:"supplierId"`
	Status     string `db:"status" json:"status"`

	// ExpectedAt is the promised delivery date (nullable)
	ExpectedAt *time.Time `db:"expected_at" json:"expectedAt,omitempty"`

	// DeliveredAt is set once on delivery (nullable)
	DeliveredAt *time.Time `db:"delivered_at" json:"deliveredAt,omitempty"`

	Items []Item `db:"-" json:"items"`
}

// Item is one order line: a powder at an agreed rate.
type Item struct {
	ID        id.ID          `db:"id" json:"id"`
	OrderID   id.ID          `db:"order_id" json:"orderId"`
	PowderID  id.ID          `db:"powder_id" json:"powderId"`
	QtyKg     types.Quantity `db:"qty_kg" json:"qtyKg"`
	RatePerKg types.Money    `db:"rate_per_kg" json:"ratePerKg"`
}

// HistoryEntry is one lifecycle event of an order.
type HistoryEntry struct {
	ID        id.ID          `db:"id" json:"id"`
	CompanyID id.ID          `db:"company_id" json:"companyId"`
	OrderID   id.ID          `db:"order_id" json:"orderId"`
	Event     string         `db:"event" json:"event"`
	Meta      map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedBy string         `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// NewOrder creates an open order.
func NewOrder(companyID, supplierID id.ID) Order {
	return Order{
		Document:   entity.NewDocument(companyID),
		SupplierID: supplierID,
		Status:     StatusOpen,
	}
}

// Validate implements entity.Validatable.
func (o *Order) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(o.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if len(o.Items) == 0 {
		return apperror.NewValidation("order needs at least one item").
			WithDetail("field", "items")
	}
	for i, item := range o.Items {
		if id.IsNil(item.PowderID) {
			return apperror.NewValidation("item powder is required").
				WithDetail("item", i)
		}
		if !item.QtyKg.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("item", i)
		}
		if !item.RatePerKg.IsPositive() {
			return apperror.NewValidation("item rate must be positive").
				WithDetail("item", i)
		}
	}
	return nil
}

// IsOpen reports whether state transitions are still allowed.
func (o *Order) IsOpen() bool {
	return o.Status == StatusOpen
}

// TotalValue sums qty*rate over the order lines.
func (o *Order) TotalValue() types.Money {
	total := types.Zero()
	for _, item := range o.Items {
		total = total.Add(item.QtyKg.Mul(item.RatePerKg))
	}
	return total
}
