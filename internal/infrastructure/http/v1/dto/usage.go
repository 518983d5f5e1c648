package dto

import (
	"time"

	"powderbook/internal/core/types"
	"powderbook/internal/domain/allocation"
	"powderbook/internal/domain/usage"
)

// --- Request DTOs ---

// CreateUsageRequest records a powder consumption.
type CreateUsageRequest struct {
	PowderID   string         `json:"powderId" binding:"required,uuid"`
	SupplierID string         `json:"supplierId" binding:"required,uuid"`
	ClientID   *string        `json:"clientId" binding:"omitempty,uuid"`
	QuantityKg types.Quantity `json:"quantityKg" binding:"required"`
	UsedAt     time.Time      `json:"usedAt" binding:"required"`
	Comment    string         `json:"comment"`
}

// EditUsageRequest revises a usage. Powder and supplier cannot change.
type EditUsageRequest struct {
	PowderID   string         `json:"powderId" binding:"required,uuid"`
	SupplierID string         `json:"supplierId" binding:"required,uuid"`
	ClientID   *string        `json:"clientId" binding:"omitempty,uuid"`
	QuantityKg types.Quantity `json:"quantityKg" binding:"required"`
	UsedAt     time.Time      `json:"usedAt" binding:"required"`
	Comment    string         `json:"comment"`
}

// UsageListFilter narrows usage listings.
type UsageListFilter struct {
	PaginationRequest
	PowderID   string     `form:"powderId" binding:"omitempty,uuid"`
	SupplierID string     `form:"supplierId" binding:"omitempty,uuid"`
	ClientID   string     `form:"clientId" binding:"omitempty,uuid"`
	FromDate   *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// --- Response DTOs ---

// UsageResponse represents a usage document in API responses.
type UsageResponse struct {
	ID         string         `json:"id"`
	Number     string         `json:"number"`
	PowderID   string         `json:"powderId"`
	SupplierID string         `json:"supplierId"`
	ClientID   *string        `json:"clientId,omitempty"`
	QuantityKg types.Quantity `json:"quantityKg"`
	TotalCost  types.Money    `json:"totalCost"`
	CostPerKg  types.Money    `json:"costPerKg"`
	Date       time.Time      `json:"date"`
	Comment    string         `json:"comment,omitempty"`
	Version    int            `json:"version"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// FromUsage creates response from a domain usage.
func FromUsage(u usage.Usage) UsageResponse {
	resp := UsageResponse{
		ID:         u.ID.String(),
		Number:     u.Number,
		PowderID:   u.PowderID.String(),
		SupplierID: u.SupplierID.String(),
		QuantityKg: u.QuantityKg,
		TotalCost:  u.TotalCost,
		CostPerKg:  u.CostPerKg(),
		Date:       u.Date,
		Comment:    u.Comment,
		Version:    u.Version,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if u.ClientID != nil {
		s := u.ClientID.String()
		resp.ClientID = &s
	}
	return resp
}

// FromUsages converts a slice of usages.
func FromUsages(usages []usage.Usage) []UsageResponse {
	out := make([]UsageResponse, len(usages))
	for i, u := range usages {
		out[i] = FromUsage(u)
	}
	return out
}

// TrailEntryResponse is one line of a usage's consumption trail.
type TrailEntryResponse struct {
	ID        string         `json:"id"`
	BatchID   string         `json:"batchId"`
	QtyUsed   types.Quantity `json:"qtyUsed"`
	RatePerKg types.Money    `json:"ratePerKg"`
	Cost      types.Money    `json:"cost"`
}

// FromTrailEntries converts a usage's trail.
func FromTrailEntries(entries []allocation.TrailEntry) []TrailEntryResponse {
	out := make([]TrailEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = TrailEntryResponse{
			ID:        e.ID.String(),
			BatchID:   e.BatchID.String(),
			QtyUsed:   e.QtyUsed,
			RatePerKg: e.RatePerKg,
			Cost:      e.Cost(),
		}
	}
	return out
}
