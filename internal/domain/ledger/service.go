package ledger

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
	"powderbook/pkg/logger"
)

// Service provides business operations for the stock batch ledger.
type Service struct {
	repo      Repository
	txManager tx.Manager
	activity  *activity.Service
}

// NewService creates a new ledger service.
func NewService(repo Repository, txManager tx.Manager, activitySvc *activity.Service) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		activity:  activitySvc,
	}
}

// AddStockInput describes a manual stock receipt.
type AddStockInput struct {
	CompanyID  id.ID
	PowderID   id.ID
	SupplierID id.ID
	QtyKg      types.Quantity
	RatePerKg  types.Money
	ReceivedAt time.Time
	Note       string
	CreatedBy  string
}

// AddStock records a new batch with full remaining quantity.
func (s *Service) AddStock(ctx context.Context, input AddStockInput) (*StockBatch, error) {
	batch := NewStockBatch(input.CompanyID, input.PowderID, input.SupplierID, input.QtyKg, input.RatePerKg, input.ReceivedAt)
	batch.Note = input.Note
	batch.CreatedBy = input.CreatedBy

	if err := batch.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		return s.activity.Record(ctx, activity.EventStockAdded, activity.RefStockBatch, batch.ID, map[string]any{
			"powder_id": batch.PowderID.String(),
			"qty_kg":    batch.QtyReceived.String(),
			"rate":      batch.RatePerKg.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock batch added",
		"batch_id", batch.ID,
		"powder_id", batch.PowderID,
		"qty_kg", batch.QtyReceived.String(),
	)

	return &batch, nil
}

// GetBatch retrieves a single batch.
func (s *Service) GetBatch(ctx context.Context, companyID, batchID id.ID) (StockBatch, error) {
	batch, err := s.repo.GetByID(ctx, companyID, batchID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return StockBatch{}, apperror.NewNotFound("stock batch", batchID.String())
		}
		return StockBatch{}, err
	}
	return batch, nil
}

// ListBatches retrieves batches for display, newest first.
func (s *Service) ListBatches(ctx context.Context, companyID id.ID, filter BatchFilter) (domain.ListResult[StockBatch], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	batches, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return domain.ListResult[StockBatch]{}, fmt.Errorf("list batches: %w", err)
	}

	return domain.ListResult[StockBatch]{
		Items:      batches,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// EditStockInput describes a batch rewrite.
type EditStockInput struct {
	CompanyID  id.ID
	BatchID    id.ID
	PowderID   id.ID
	SupplierID id.ID
	QtyKg      types.Quantity
	RatePerKg  types.Money
	ReceivedAt time.Time
	Note       string
	UpdatedBy  string
}

// EditBatch rewrites an untouched batch. Editing is equivalent to deleting
// the batch and recording a new one: both received and remaining quantities
// are reset to the new value. A batch with any consumption is rejected
// with BATCH_LOCKED.
func (s *Service) EditBatch(ctx context.Context, input EditStockInput) (*StockBatch, error) {
	var batch StockBatch

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.repo.GetForUpdate(ctx, input.CompanyID, input.BatchID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock batch", input.BatchID.String())
			}
			return err
		}

		if !batch.IsEditable() {
			return apperror.NewBatchLocked(batch.ID.String()).
				WithDetail("consumed_kg", batch.ConsumedQty().String())
		}

		batch.PowderID = input.PowderID
		batch.SupplierID = input.SupplierID
		batch.QtyReceived = input.QtyKg
		batch.QtyRemaining = input.QtyKg
		batch.RatePerKg = input.RatePerKg
		batch.ReceivedAt = input.ReceivedAt
		batch.Note = input.Note
		batch.UpdatedBy = input.UpdatedBy

		if err := batch.Validate(ctx); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, &batch); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		return s.activity.Record(ctx, activity.EventStockEdited, activity.RefStockBatch, batch.ID, map[string]any{
			"qty_kg": batch.QtyReceived.String(),
			"rate":   batch.RatePerKg.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	return &batch, nil
}

// DeleteBatch removes an untouched batch. A batch with any consumption is
// rejected with BATCH_LOCKED.
func (s *Service) DeleteBatch(ctx context.Context, companyID, batchID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.repo.GetForUpdate(ctx, companyID, batchID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("stock batch", batchID.String())
			}
			return err
		}

		if !batch.IsEditable() {
			return apperror.NewBatchLocked(batch.ID.String()).
				WithDetail("consumed_kg", batch.ConsumedQty().String())
		}

		if err := s.repo.Delete(ctx, companyID, batchID); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}

		return s.activity.Record(ctx, activity.EventStockDeleted, activity.RefStockBatch, batchID, map[string]any{
			"powder_id": batch.PowderID.String(),
			"qty_kg":    batch.QtyReceived.String(),
		})
	})
}

// TotalAvailable returns the total unconsumed quantity of a powder,
// optionally narrowed to one supplier.
func (s *Service) TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error) {
	return s.repo.TotalAvailable(ctx, companyID, powderID, supplierID)
}
