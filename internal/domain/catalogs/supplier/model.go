package supplier

import (
	"context"

	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
)

// Supplier is a powder vendor. Stock batches and purchase orders
// reference a supplier.
type Supplier struct {
	entity.Catalog

	ContactName *string `json:"contactName,omitempty" db:"contact_name"`
	Phone       *string `json:"phone,omitempty" db:"phone"`
	Email       *string `json:"email,omitempty" db:"email"`
	Note        *string `json:"note,omitempty" db:"note"`
}

// NewSupplier creates a supplier with generated ID.
func NewSupplier(companyID id.ID, code, name string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog(companyID, code, name),
	}
}

func (s *Supplier) Validate(ctx context.Context) error {
	return s.Catalog.Validate(ctx)
}
