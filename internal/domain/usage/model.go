// Package usage provides powder consumption documents. Each usage consumes
// stock through FIFO allocation and can be edited or cancelled, restoring
// the consumed batches exactly.
package usage

import (
	"context"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
)

// Usage records a consumption of powder. QuantityKg is what was requested;
// TotalCost is the FIFO-derived sum of qty*rate over the consumption trail.
type Usage struct {
	entity.Document

	// PowderID and SupplierID are immutable after creation: the trail is
	// keyed to this combination, so changing either means cancelling the
	// usage and recording a new one.
	PowderID   id.ID `db:"powder_id" json:"powderId"`
	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// ClientID optionally attributes the usage to a client job (nullable)
	ClientID *id.ID `db:"client_id" json:"clientId,omitempty"`

	QuantityKg types.Quantity `db:"quantity_kg" json:"quantityKg"`
	TotalCost  types.Money    `db:"total_cost" json:"totalCost"`
}

// NewUsage creates a usage document.
func NewUsage(companyID, powderID, supplierID id.ID, qty types.Quantity) Usage {
	return Usage{
		Document:   entity.NewDocument(companyID),
		PowderID:   powderID,
		SupplierID: supplierID,
		QuantityKg: qty,
	}
}

// Validate implements entity.Validatable.
func (u *Usage) Validate(ctx context.Context) error {
	if err := u.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(u.PowderID) {
		return apperror.NewValidation("powder is required").
			WithDetail("field", "powderId")
	}
	if id.IsNil(u.SupplierID) {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierId")
	}
	if !u.QuantityKg.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantityKg")
	}
	return nil
}

// CostPerKg is the effective blended rate of the usage.
func (u *Usage) CostPerKg() types.Money {
	if u.QuantityKg.IsZero() {
		return types.Zero()
	}
	return u.TotalCost.Div(u.QuantityKg)
}
