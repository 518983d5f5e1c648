package purchase

import (
	"context"
	"time"

	"powderbook/internal/core/id"
)

// ListFilter narrows order listings.
type ListFilter struct {
	Status     string
	SupplierID *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines storage operations for purchase orders.
type Repository interface {
	// Create inserts an order with its items
	Create(ctx context.Context, order *Order) error

	// GetByID retrieves an order with items
	GetByID(ctx context.Context, companyID, orderID id.ID) (Order, error)

	// GetForUpdate retrieves an order with a row lock (items included)
	GetForUpdate(ctx context.Context, companyID, orderID id.ID) (Order, error)

	// UpdateStatus moves the order to a terminal status; sets delivered_at
	// when deliveredAt is non-nil
	UpdateStatus(ctx context.Context, order *Order) error

	// List retrieves orders newest first (items included)
	List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Order, int64, error)

	// AddHistory appends a lifecycle event
	AddHistory(ctx context.Context, entry *HistoryEntry) error

	// ListHistory retrieves an order's events oldest first
	ListHistory(ctx context.Context, companyID, orderID id.ID) ([]HistoryEntry, error)
}
