package entity

import (
	"context"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
)

// Catalog is the base type for reference data.
// Examples: Powder, Supplier, Client.
type Catalog struct {
	BaseCatalog

	// Code is a human-readable identifier (unique within company)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`
}

// NewCatalog creates a new Catalog with generated ID.
func NewCatalog(companyID id.ID, code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(companyID),
		Code:        code,
		Name:        name,
	}
}

// Validate implements Validatable interface.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	// Code can be auto-generated, so it's optional at creation
	// but required at save time

	return nil
}
