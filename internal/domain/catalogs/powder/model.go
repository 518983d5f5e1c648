// Package powder provides the Powder catalog: the coating materials whose
// stock the ledger tracks.
package powder

import (
	"context"

	"powderbook/internal/core/entity"
	"powderbook/internal/core/id"
)

// Powder represents a coating powder product.
type Powder struct {
	entity.Catalog

	// Manufacturer is the producing brand (nullable)
	Manufacturer *string `db:"manufacturer" json:"manufacturer,omitempty"`

	// Color is the powder color/RAL code (nullable)
	Color *string `db:"color" json:"color,omitempty"`

	// Finish is the surface finish, e.g. gloss, matte (nullable)
	Finish *string `db:"finish" json:"finish,omitempty"`

	// Description is a detailed description (nullable)
	Description *string `db:"description" json:"description,omitempty"`
}

// NewPowder creates a new Powder with required fields.
func NewPowder(companyID id.ID, code, name string) *Powder {
	return &Powder{
		Catalog: entity.NewCatalog(companyID, code, name),
	}
}

// Validate implements entity.Validatable interface.
func (p *Powder) Validate(ctx context.Context) error {
	return p.Catalog.Validate(ctx)
}
