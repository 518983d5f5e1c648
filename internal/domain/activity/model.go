// Package activity provides the append-only activity log: every stock
// mutation leaves an event describing who did what to which record.
package activity

import (
	"time"

	"powderbook/internal/core/id"
)

// Event types.
const (
	EventStockAdded     = "stock.added"
	EventStockEdited    = "stock.edited"
	EventStockDeleted   = "stock.deleted"
	EventUsageCreated   = "usage.created"
	EventUsageEdited    = "usage.edited"
	EventUsageCancelled = "usage.cancelled"
	EventOrderCreated   = "order.created"
	EventOrderCancelled = "order.cancelled"
	EventOrderDelivered = "order.delivered"
	EventUserInvited    = "user.invited"
	EventCompanyUpdated = "company.updated"
)

// Reference types.
const (
	RefStockBatch    = "stock_batch"
	RefUsage         = "usage"
	RefPurchaseOrder = "purchase_order"
	RefUser          = "user"
	RefCompany       = "company"
)

// Event is a single activity log record.
type Event struct {
	ID        id.ID          `db:"id" json:"id"`
	CompanyID id.ID          `db:"company_id" json:"companyId"`
	EventType string         `db:"event_type" json:"eventType"`
	RefType   string         `db:"ref_type" json:"refType"`
	RefID     id.ID          `db:"ref_id" json:"refId"`
	Meta      map[string]any `db:"meta" json:"meta,omitempty"`
	CreatedBy string         `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}
