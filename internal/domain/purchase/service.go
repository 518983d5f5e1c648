package purchase

import (
	"context"
	"fmt"
	"time"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/tx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain"
	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/ledger"
	"powderbook/pkg/logger"
	"powderbook/pkg/numerator"
)

// Service provides the purchase order lifecycle.
type Service struct {
	repo      Repository
	batches   ledger.Repository
	txManager tx.Manager
	numerator *numerator.Service
	activity  *activity.Service
}

// NewService creates a new purchase order service.
func NewService(repo Repository, batches ledger.Repository, txManager tx.Manager, num *numerator.Service, activitySvc *activity.Service) *Service {
	return &Service{
		repo:      repo,
		batches:   batches,
		txManager: txManager,
		numerator: num,
		activity:  activitySvc,
	}
}

// CreateItemInput is one order line.
type CreateItemInput struct {
	PowderID  id.ID
	QtyKg     types.Quantity
	RatePerKg types.Money
}

// CreateInput describes a new order.
type CreateInput struct {
	CompanyID  id.ID
	SupplierID id.ID
	ExpectedAt *time.Time
	Comment    string
	Items      []CreateItemInput
	CreatedBy  string
}

// Create places a new open order.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Order, error) {
	order := NewOrder(input.CompanyID, input.SupplierID)
	order.ExpectedAt = input.ExpectedAt
	order.Comment = input.Comment
	order.CreatedBy = input.CreatedBy
	for _, item := range input.Items {
		order.Items = append(order.Items, Item{
			ID:        id.New(),
			OrderID:   order.ID,
			PowderID:  item.PowderID,
			QtyKg:     item.QtyKg,
			RatePerKg: item.RatePerKg,
		})
	}

	if err := order.Validate(ctx); err != nil {
		return nil, err
	}

	number, err := s.numerator.GetNextNumber(ctx, input.CompanyID.String(),
		numerator.DefaultConfig("PO"), nil, order.Date)
	if err != nil {
		return nil, fmt.Errorf("next order number: %w", err)
	}
	order.Number = number

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, &order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.addHistory(ctx, &order, HistoryCreated, nil); err != nil {
			return err
		}
		return s.activity.Record(ctx, activity.EventOrderCreated, activity.RefPurchaseOrder, order.ID, map[string]any{
			"number":      order.Number,
			"supplier_id": order.SupplierID.String(),
			"total_value": order.TotalValue().String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order created",
		"order_id", order.ID,
		"number", order.Number,
		"items", len(order.Items),
	)

	return &order, nil
}

// Cancel closes an open order without delivery.
func (s *Service) Cancel(ctx context.Context, companyID, orderID id.ID) (*Order, error) {
	var order Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, companyID, orderID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("purchase order", orderID.String())
			}
			return err
		}

		if !order.IsOpen() {
			return apperror.NewOrderClosed(order.ID.String(), order.Status)
		}

		order.Status = StatusCancelled
		order.UpdatedBy = reqctx.GetUserID(ctx)
		if err := s.repo.UpdateStatus(ctx, &order); err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}

		if err := s.addHistory(ctx, &order, HistoryCancelled, nil); err != nil {
			return err
		}
		return s.activity.Record(ctx, activity.EventOrderCancelled, activity.RefPurchaseOrder, order.ID, map[string]any{
			"number": order.Number,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order cancelled", "order_id", order.ID, "number", order.Number)
	return &order, nil
}

// Deliver completes an open order: every order line becomes a stock batch
// at the line's rate, received now, linked back to the order. Runs in one
// transaction with the status change.
func (s *Service) Deliver(ctx context.Context, companyID, orderID id.ID) (*Order, error) {
	var order Order

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.repo.GetForUpdate(ctx, companyID, orderID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("purchase order", orderID.String())
			}
			return err
		}

		if !order.IsOpen() {
			return apperror.NewOrderClosed(order.ID.String(), order.Status)
		}

		now := time.Now().UTC()
		for _, item := range order.Items {
			batch := ledger.NewStockBatch(companyID, item.PowderID, order.SupplierID, item.QtyKg, item.RatePerKg, now)
			batch.PurchaseOrderID = &order.ID
			batch.CreatedBy = reqctx.GetUserID(ctx)
			batch.Note = fmt.Sprintf("delivery of %s", order.Number)

			if err := batch.Validate(ctx); err != nil {
				return err
			}
			if err := s.batches.Create(ctx, &batch); err != nil {
				return fmt.Errorf("create batch for item %s: %w", item.ID, err)
			}
		}

		order.Status = StatusCompleted
		order.DeliveredAt = &now
		order.UpdatedBy = reqctx.GetUserID(ctx)
		if err := s.repo.UpdateStatus(ctx, &order); err != nil {
			return fmt.Errorf("complete order: %w", err)
		}

		if err := s.addHistory(ctx, &order, HistoryDelivered, map[string]any{
			"batches": len(order.Items),
		}); err != nil {
			return err
		}
		return s.activity.Record(ctx, activity.EventOrderDelivered, activity.RefPurchaseOrder, order.ID, map[string]any{
			"number":  order.Number,
			"batches": len(order.Items),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order delivered",
		"order_id", order.ID,
		"number", order.Number,
		"batches", len(order.Items),
	)

	return &order, nil
}

// Get retrieves an order with items.
func (s *Service) Get(ctx context.Context, companyID, orderID id.ID) (Order, error) {
	order, err := s.repo.GetByID(ctx, companyID, orderID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Order{}, apperror.NewNotFound("purchase order", orderID.String())
		}
		return Order{}, err
	}
	return order, nil
}

// List retrieves orders newest first.
func (s *Service) List(ctx context.Context, companyID id.ID, filter ListFilter) (domain.ListResult[Order], error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}

	orders, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return domain.ListResult[Order]{}, fmt.Errorf("list orders: %w", err)
	}

	return domain.ListResult[Order]{
		Items:      orders,
		TotalCount: total,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}, nil
}

// History retrieves an order's lifecycle events oldest first.
func (s *Service) History(ctx context.Context, companyID, orderID id.ID) ([]HistoryEntry, error) {
	if _, err := s.Get(ctx, companyID, orderID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, companyID, orderID)
}

func (s *Service) addHistory(ctx context.Context, order *Order, event string, meta map[string]any) error {
	entry := HistoryEntry{
		ID:        id.New(),
		CompanyID: order.CompanyID,
		OrderID:   order.ID,
		Event:     event,
		Meta:      meta,
		CreatedBy: reqctx.GetUserID(ctx),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.AddHistory(ctx, &entry); err != nil {
		return fmt.Errorf("add order history: %w", err)
	}
	return nil
}
