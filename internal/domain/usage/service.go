package usage

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/tx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain"
	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/allocation"
	"powderbook/pkg/logger"
	"powderbook/pkg/numerator"
)

// Service provides the usage lifecycle. Every mutation (create, edit,
// cancel) runs its allocation steps and document writes in one transaction:
// either the ledger, the trail and the document all move, or none do.
type Service struct {
	repo      Repository
	allocator *allocation.Allocator
	txManager tx.Manager
	numerator *numerator.Service
	activity  *activity.Service
}

// NewService creates a new usage service.
func NewService(repo Repository, allocator *allocation.Allocator, txManager tx.Manager, num *numerator.Service, activitySvc *activity.Service) *Service {
	return &Service{
		repo:      repo,
		allocator: allocator,
		txManager: txManager,
		numerator: num,
		activity:  activitySvc,
	}
}

// CreateInput describes a new usage.
type CreateInput struct {
	CompanyID  id.ID
	PowderID   id.ID
	SupplierID id.ID
	ClientID   *id.ID
	QuantityKg types.Quantity
	UsedAt     time.Time
	Comment    string
	CreatedBy  string
}

// Create records a usage: allocates stock FIFO from the powder+supplier
// batches, snapshots the cost and writes the consumption trail.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Usage, error) {
	u := NewUsage(input.CompanyID, input.PowderID, input.SupplierID, input.QuantityKg)
	u.ClientID = input.ClientID
	u.Comment = input.Comment
	u.CreatedBy = input.CreatedBy
	if !input.UsedAt.IsZero() {
		u.Date = input.UsedAt
	}

	if err := u.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, input.CompanyID.String(),
		numerator.DefaultConfig("USG"), &numerator.Options{Strategy: numerator.StrategyCached}, u.Date)
	if err != nil {
		return nil, fmt.Errorf("next usage number: %w", err)
	}
	u.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// The usage row must exist before the trail references it.
		if err := s.repo.Create(ctx, &u); err != nil {
			return fmt.Errorf("create usage: %w", err)
		}

		_, total, err := s.allocator.Allocate(ctx, u.CompanyID, u.PowderID, u.SupplierID, u.ID, u.QuantityKg)
		if err != nil {
			return err
		}

		u.TotalCost = total
		if err := s.repo.Update(ctx, &u); err != nil {
			return fmt.Errorf("store usage cost: %w", err)
		}

		return s.activity.Record(ctx, activity.EventUsageCreated, activity.RefUsage, u.ID, map[string]any{
			"powder_id":  u.PowderID.String(),
			"qty_kg":     u.QuantityKg.String(),
			"total_cost": u.TotalCost.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "usage created",
		"usage_id", u.ID,
		"number", u.Number,
		"qty_kg", u.QuantityKg.String(),
		"total_cost", u.TotalCost.String(),
	)

	return &u, nil
}

// EditInput describes a usage revision. Powder and supplier are immutable;
// quantity, date, client and comment may change.
type EditInput struct {
	CompanyID  id.ID
	UsageID    id.ID
	PowderID   id.ID // must match the stored usage
	SupplierID id.ID // must match the stored usage
	ClientID   *id.ID
	QuantityKg types.Quantity
	UsedAt     time.Time
	Comment    string
	UpdatedBy  string
}

// Edit revises a usage. The stored allocation is reversed exactly and the
// new quantity re-allocated against current stock, all in one transaction.
// The new allocation may touch different batches than the original.
func (s *Service) Edit(ctx context.Context, input EditInput) (*Usage, error) {
	var u Usage

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.repo.GetForUpdate(ctx, input.CompanyID, input.UsageID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("usage", input.UsageID.String())
			}
			return err
		}

		if u.PowderID != input.PowderID {
			return apperror.NewValidation("powder cannot be changed; cancel the usage and record a new one").
				WithDetail("field", "powderId")
		}
		if u.SupplierID != input.SupplierID {
			return apperror.NewValidation("supplier cannot be changed; cancel the usage and record a new one").
				WithDetail("field", "supplierId")
		}

		if _, err := s.allocator.Reverse(ctx, u.CompanyID, u.ID); err != nil {
			return err
		}

		u.QuantityKg = input.QuantityKg
		u.ClientID = input.ClientID
		u.Comment = input.Comment
		u.UpdatedBy = input.UpdatedBy
		if !input.UsedAt.IsZero() {
			u.Date = input.UsedAt
		}

		if err := u.Validate(ctx); err != nil {
			return err
		}

		_, total, err := s.allocator.Allocate(ctx, u.CompanyID, u.PowderID, u.SupplierID, u.ID, u.QuantityKg)
		if err != nil {
			return err
		}

		u.TotalCost = total
		if err := s.repo.Update(ctx, &u); err != nil {
			return fmt.Errorf("update usage: %w", err)
		}

		return s.activity.Record(ctx, activity.EventUsageEdited, activity.RefUsage, u.ID, map[string]any{
			"qty_kg":     u.QuantityKg.String(),
			"total_cost": u.TotalCost.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "usage edited",
		"usage_id", u.ID,
		"qty_kg", u.QuantityKg.String(),
		"total_cost", u.TotalCost.String(),
	)

	return &u, nil
}

// Cancel removes a usage: every touched batch is restored by exactly the
// trail quantities, then the trail and the document are deleted.
func (s *Service) Cancel(ctx context.Context, companyID, usageID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetForUpdate(ctx, companyID, usageID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("usage", usageID.String())
			}
			return err
		}

		restored, err := s.allocator.Reverse(ctx, companyID, usageID)
		if err != nil {
			return err
		}

		if err := s.repo.Delete(ctx, companyID, usageID); err != nil {
			return fmt.Errorf("delete usage: %w", err)
		}

		return s.activity.Record(ctx, activity.EventUsageCancelled, activity.RefUsage, usageID, map[string]any{
			"powder_id":   u.PowderID.String(),
			"restored_kg": restored.String(),
		})
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "usage cancelled", "usage_id", usageID)
	return nil
}

// Get retrieves a usage.
func (s *Service) Get(ctx context.Context, companyID, usageID id.ID) (Usage, error) {
	u, err := s.repo.GetByID(ctx, companyID, usageID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Usage{}, apperror.NewNotFound("usage", usageID.String())
		}
		return Usage{}, err
	}
	return u, nil
}

// List retrieves usages newest first.
func (s *Service) List(ctx context.Context, companyID id.ID, filter ListFilter) (domain.ListResult[Usage], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	usages, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return domain.ListResult[Usage]{}, fmt.Errorf("list usages: %w", err)
	}

	return domain.ListResult[Usage]{
		Items:      usages,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// Trail returns the consumption trail of a usage.
func (s *Service) Trail(ctx context.Context, companyID, usageID id.ID) ([]allocation.TrailEntry, error) {
	return s.allocator.Trail(ctx, companyID, usageID)
}
