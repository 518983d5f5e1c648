package usage

import (
	"context"
	"time"

	"powderbook/internal/core/id"
)

// ListFilter narrows usage listings.
type ListFilter struct {
	PowderID   *id.ID
	SupplierID *id.ID
	ClientID   *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines storage operations for usage documents.
type Repository interface {
	// Create inserts a usage row. Must happen before trail entries are
	// written: they reference the usage.
	Create(ctx context.Context, usage *Usage) error

	// GetByID retrieves a usage within a company
	GetByID(ctx context.Context, companyID, usageID id.ID) (Usage, error)

	// GetForUpdate retrieves a usage with a row lock
	GetForUpdate(ctx context.Context, companyID, usageID id.ID) (Usage, error)

	// Update rewrites usage fields (optimistic locking on version)
	Update(ctx context.Context, usage *Usage) error

	// Delete physically removes a usage. Trail entries must already be gone.
	Delete(ctx context.Context, companyID, usageID id.ID) error

	// List retrieves usages newest first
	List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Usage, int64, error)
}
