package dto

import (
	"time"

	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
)

// --- Request DTOs ---

// AddStockRequest records a manual stock receipt.
type AddStockRequest struct {
	PowderID   string         `json:"powderId" binding:"required,uuid"`
	SupplierID string         `json:"supplierId" binding:"required,uuid"`
	QtyKg      types.Quantity `json:"qtyKg" binding:"required"`
	RatePerKg  types.Money    `json:"ratePerKg" binding:"required"`
	ReceivedAt time.Time      `json:"receivedAt" binding:"required"`
	Note       string         `json:"note"`
}

// EditStockRequest rewrites an untouched batch.
type EditStockRequest struct {
	PowderID   string         `json:"powderId" binding:"required,uuid"`
	SupplierID string         `json:"supplierId" binding:"required,uuid"`
	QtyKg      types.Quantity `json:"qtyKg" binding:"required"`
	RatePerKg  types.Money    `json:"ratePerKg" binding:"required"`
	ReceivedAt time.Time      `json:"receivedAt" binding:"required"`
	Note       string         `json:"note"`
}

// StockListFilter narrows batch listings.
type StockListFilter struct {
	PaginationRequest
	PowderID      string     `form:"powderId" binding:"omitempty,uuid"`
	SupplierID    string     `form:"supplierId" binding:"omitempty,uuid"`
	OnlyAvailable bool       `form:"onlyAvailable"`
	FromDate      *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate        *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// --- Response DTOs ---

// StockBatchResponse represents a batch in API responses.
type StockBatchResponse struct {
	ID              string         `json:"id"`
	PowderID        string         `json:"powderId"`
	SupplierID      string         `json:"supplierId"`
	QtyReceived     types.Quantity `json:"qtyReceived"`
	QtyRemaining    types.Quantity `json:"qtyRemaining"`
	RatePerKg       types.Money    `json:"ratePerKg"`
	ReceivedAt      time.Time      `json:"receivedAt"`
	PurchaseOrderID *string        `json:"purchaseOrderId,omitempty"`
	Note            string         `json:"note,omitempty"`
	Version         int            `json:"version"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// FromStockBatch creates response from a domain batch.
func FromStockBatch(b ledger.StockBatch) StockBatchResponse {
	resp := StockBatchResponse{
		ID:           b.ID.String(),
		PowderID:     b.PowderID.String(),
		SupplierID:   b.SupplierID.String(),
		QtyReceived:  b.QtyReceived,
		QtyRemaining: b.QtyRemaining,
		RatePerKg:    b.RatePerKg,
		ReceivedAt:   b.ReceivedAt,
		Note:         b.Note,
		Version:      b.Version,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
	if b.PurchaseOrderID != nil {
		s := b.PurchaseOrderID.String()
		resp.PurchaseOrderID = &s
	}
	return resp
}

// FromStockBatches converts a slice of batches.
func FromStockBatches(batches []ledger.StockBatch) []StockBatchResponse {
	out := make([]StockBatchResponse, len(batches))
	for i, b := range batches {
		out[i] = FromStockBatch(b)
	}
	return out
}
