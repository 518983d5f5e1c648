package dto

import (
	"time"

	"powderbook/internal/core/types"
	"powderbook/internal/domain/purchase"
)

// --- Request DTOs ---

// OrderItemRequest is one line of a new purchase order.
type OrderItemRequest struct {
	PowderID  string         `json:"powderId" binding:"required,uuid"`
	QtyKg     types.Quantity `json:"qtyKg" binding:"required"`
	RatePerKg types.Money    `json:"ratePerKg" binding:"required"`
}

// CreateOrderRequest places a purchase order with a supplier.
type CreateOrderRequest struct {
	SupplierID string             `json:"supplierId" binding:"required,uuid"`
	ExpectedAt *time.Time         `json:"expectedAt"`
	Comment    string             `json:"comment"`
	Items      []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	PaginationRequest
	Status     string     `form:"status" binding:"omitempty,oneof=OPEN CANCELLED COMPLETED"`
	SupplierID string     `form:"supplierId" binding:"omitempty,uuid"`
	FromDate   *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// --- Response DTOs ---

// OrderItemResponse is one order line in API responses.
type OrderItemResponse struct {
	ID        string         `json:"id"`
	PowderID  string         `json:"powderId"`
	QtyKg     types.Quantity `json:"qtyKg"`
	RatePerKg types.Money    `json:"ratePerKg"`
	Value     types.Money    `json:"value"`
}

// OrderResponse represents a purchase order in API responses.
type OrderResponse struct {
	ID          string              `json:"id"`
	Number      string              `json:"number"`
	SupplierID  string              `json:"supplierId"`
	Status      string              `json:"status"`
	ExpectedAt  *time.Time          `json:"expectedAt,omitempty"`
	DeliveredAt *time.Time          `json:"deliveredAt,omitempty"`
	Comment     string              `json:"comment,omitempty"`
	Items       []OrderItemResponse `json:"items"`
	TotalValue  types.Money         `json:"totalValue"`
	Date        time.Time           `json:"date"`
	Version     int                 `json:"version"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// FromOrder creates response from a domain order.
func FromOrder(o purchase.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			ID:        item.ID.String(),
			PowderID:  item.PowderID.String(),
			QtyKg:     item.QtyKg,
			RatePerKg: item.RatePerKg,
			Value:     item.QtyKg.Mul(item.RatePerKg),
		}
	}
	return OrderResponse{
		ID:          o.ID.String(),
		Number:      o.Number,
		SupplierID:  o.SupplierID.String(),
		Status:      o.Status,
		ExpectedAt:  o.ExpectedAt,
		DeliveredAt: o.DeliveredAt,
		Comment:     o.Comment,
		Items:       items,
		TotalValue:  o.TotalValue(),
		Date:        o.Date,
		Version:     o.Version,
		CreatedAt:   o.CreatedAt,
	}
}

// FromOrders converts a slice of orders.
func FromOrders(orders []purchase.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = FromOrder(o)
	}
	return out
}

// OrderHistoryResponse is one lifecycle event of an order.
type OrderHistoryResponse struct {
	ID        string         `json:"id"`
	Event     string         `json:"event"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedBy string         `json:"createdBy,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromOrderHistory converts an order's lifecycle events.
func FromOrderHistory(entries []purchase.HistoryEntry) []OrderHistoryResponse {
	out := make([]OrderHistoryResponse, len(entries))
	for i, e := range entries {
		out[i] = OrderHistoryResponse{
			ID:        e.ID.String(),
			Event:     e.Event,
			Meta:      e.Meta,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
