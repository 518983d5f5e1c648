package activity

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/domain"
	"powderbook/pkg/logger"
)

// Service records and lists activity events.
type Service struct {
	repo Repository
}

// NewService creates a new activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an event for the current request's company and user.
// Must be called inside the same transaction as the mutation it describes.
func (s *Service) Record(ctx context.Context, eventType, refType string, refID id.ID, meta map[string]any) error {
	companyID, err := id.Parse(reqctx.GetCompanyID(ctx))
	if err != nil {
		return fmt.Errorf("activity record: no company in context: %w", err)
	}

	event := Event{
		ID:        id.New(),
		CompanyID: companyID,
		EventType: eventType,
		RefType:   refType,
		RefID:     refID,
		Meta:      meta,
		CreatedBy: reqctx.GetUserID(ctx),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, &event); err != nil {
		return fmt.Errorf("record activity %s: %w", eventType, err)
	}

	logger.Debug(ctx, "activity recorded",
		"event_type", eventType,
		"ref_type", refType,
		"ref_id", refID,
	)

	return nil
}

// List retrieves events for a company, newest first.
func (s *Service) List(ctx context.Context, companyID id.ID, filter ListFilter) (domain.ListResult[Event], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	events, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return domain.ListResult[Event]{}, fmt.Errorf("list activity: %w", err)
	}

	return domain.ListResult[Event]{
		Items:      events,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}
