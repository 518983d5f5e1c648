// Package purchase_repo provides the PostgreSQL implementation of purchase
// orders, their lines, and the order history log.
package purchase_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/purchase"
	"powderbook/internal/infrastructure/storage/postgres"
)

const (
	orderTable   = "purchase_orders"
	itemTable    = "purchase_order_items"
	historyTable = "purchase_order_history"
)

// OrderRepo implements purchase.Repository.
type OrderRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
	itemCols   []string
}

// NewOrderRepo creates a new purchase order repository.
func NewOrderRepo(txManager *postgres.TxManager) *OrderRepo {
	return &OrderRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[purchase.Order](),
		itemCols:   postgres.ExtractDBColumns[purchase.Item](),
	}
}

func (r *OrderRepo) baseSelect(companyID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(r.selectCols...).
		From(orderTable).
		Where(squirrel.Eq{"company_id": companyID})
}

// Create inserts an order with its items. Callers run this inside a
// transaction so the order and its lines land together.
func (r *OrderRepo) Create(ctx context.Context, order *purchase.Order) error {
	data := postgres.StructToMap(order)

	q := r.builder.
		Insert(orderTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		if id.IsNil(item.ID) {
			item.ID = id.New()
		}
		item.OrderID = order.ID

		iq := r.builder.
			Insert(itemTable).
			SetMap(postgres.StructToMap(item))

		sql, args, err := iq.ToSql()
		if err != nil {
			return fmt.Errorf("build item insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an order with items.
func (r *OrderRepo) GetByID(ctx context.Context, companyID, orderID id.ID) (purchase.Order, error) {
	return r.get(ctx, companyID, orderID, false)
}

// GetForUpdate retrieves an order with a row lock, items included.
func (r *OrderRepo) GetForUpdate(ctx context.Context, companyID, orderID id.ID) (purchase.Order, error) {
	return r.get(ctx, companyID, orderID, true)
}

func (r *OrderRepo) get(ctx context.Context, companyID, orderID id.ID, forUpdate bool) (purchase.Order, error) {
	var order purchase.Order

	q := r.baseSelect(companyID).
		Where(squirrel.Eq{"id": orderID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return order, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &order, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return order, apperror.NewNotFound("purchase order", orderID.String())
		}
		return order, fmt.Errorf("get order: %w", err)
	}

	items, err := r.loadItems(ctx, []id.ID{orderID})
	if err != nil {
		return order, err
	}
	order.Items = items[orderID]
	return order, nil
}

// UpdateStatus moves the order to a terminal status.
func (r *OrderRepo) UpdateStatus(ctx context.Context, order *purchase.Order) error {
	q := r.builder.
		Update(orderTable).
		Set("status", order.Status).
		Set("delivered_at", order.DeliveredAt).
		Set("updated_at", squirrel.Expr("now()")).
		Set("updated_by", order.UpdatedBy).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": order.ID}).
		Where(squirrel.Eq{"company_id": order.CompanyID}).
		Where(squirrel.Eq{"version": order.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("purchase order", order.ID.String())
	}
	return nil
}

// List retrieves orders newest first, items included.
func (r *OrderRepo) List(ctx context.Context, companyID id.ID, filter purchase.ListFilter) ([]purchase.Order, int64, error) {
	q := r.baseSelect(companyID)

	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"date": *filter.ToDate})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	q = q.OrderBy("date DESC", "id DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var orders []purchase.Order
	if err := pgxscan.Select(ctx, querier, &orders, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	orderIDs := make([]id.ID, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}
	items, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

func (r *OrderRepo) loadItems(ctx context.Context, orderIDs []id.ID) (map[id.ID][]purchase.Item, error) {
	q := r.builder.
		Select(r.itemCols...).
		From(itemTable).
		Where(squirrel.Eq{"order_id": orderIDs}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build items query: %w", err)
	}

	var items []purchase.Item
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	byOrder := make(map[id.ID][]purchase.Item, len(orderIDs))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	return byOrder, nil
}

// AddHistory appends a lifecycle event.
func (r *OrderRepo) AddHistory(ctx context.Context, entry *purchase.HistoryEntry) error {
	q := r.builder.
		Insert(historyTable).
		SetMap(postgres.StructToMap(entry))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build history insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// ListHistory retrieves an order's events oldest first.
func (r *OrderRepo) ListHistory(ctx context.Context, companyID, orderID id.ID) ([]purchase.HistoryEntry, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[purchase.HistoryEntry]()...).
		From(historyTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("created_at ASC", "id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var entries []purchase.HistoryEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

// Ensure interface compliance.
var _ purchase.Repository = (*OrderRepo)(nil)
