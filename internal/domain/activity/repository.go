package activity

import (
	"context"
	"time"

	"powderbook/internal/core/id"
)

// ListFilter narrows event listings.
type ListFilter struct {
	EventTypes []string
	RefType    string
	RefID      *id.ID
	FromDate   *time.Time
	ToDate     *time.Time
	Limit      int
	Offset     int
}

// Repository defines storage operations for activity events.
type Repository interface {
	// Create appends an event. Events are never updated or deleted.
	Create(ctx context.Context, event *Event) error

	// List retrieves events newest first
	List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Event, int64, error)
}
