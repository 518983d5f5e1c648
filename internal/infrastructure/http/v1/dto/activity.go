package dto

import (
	"time"

	"powderbook/internal/domain/activity"
)

// ActivityListFilter narrows activity log listings.
type ActivityListFilter struct {
	PaginationRequest
	EventTypes []string   `form:"eventType"`
	RefType    string     `form:"refType"`
	RefID      string     `form:"refId" binding:"omitempty,uuid"`
	FromDate   *time.Time `form:"fromDate" time_format:"2006-01-02"`
	ToDate     *time.Time `form:"toDate" time_format:"2006-01-02"`
}

// ActivityEventResponse is one activity log record.
type ActivityEventResponse struct {
	ID        string         `json:"id"`
	EventType string         `json:"eventType"`
	RefType   string         `json:"refType"`
	RefID     string         `json:"refId"`
	Meta      map[string]any `json:"meta,omitempty"`
	CreatedBy string         `json:"createdBy,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FromActivityEvents converts activity log records.
func FromActivityEvents(events []activity.Event) []ActivityEventResponse {
	out := make([]ActivityEventResponse, len(events))
	for i, e := range events {
		out[i] = ActivityEventResponse{
			ID:        e.ID.String(),
			EventType: e.EventType,
			RefType:   e.RefType,
			RefID:     e.RefID.String(),
			Meta:      e.Meta,
			CreatedBy: e.CreatedBy,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
