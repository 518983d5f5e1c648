// Package ledger_repo provides the PostgreSQL implementation of the stock
// batch ledger. The qty_remaining range guard lives in SQL so that no code
// path can drive a batch outside [0, qty_received].
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
	"powderbook/internal/infrastructure/storage/postgres"
)

const batchTable = "stock_batches"

// BatchRepo implements ledger.Repository.
type BatchRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewBatchRepo creates a new stock batch repository.
func NewBatchRepo(txManager *postgres.TxManager) *BatchRepo {
	return &BatchRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[ledger.StockBatch](),
	}
}

func (r *BatchRepo) baseSelect(companyID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(r.selectCols...).
		From(batchTable).
		Where(squirrel.Eq{"company_id": companyID})
}

// Create inserts a new batch.
func (r *BatchRepo) Create(ctx context.Context, batch *ledger.StockBatch) error {
	data := postgres.StructToMap(batch)

	q := r.builder.
		Insert(batchTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID retrieves a batch within a company.
func (r *BatchRepo) GetByID(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	var batch ledger.StockBatch

	q := r.baseSelect(companyID).
		Where(squirrel.Eq{"id": batchID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return batch, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return batch, apperror.NewNotFound("stock batch", batchID.String())
		}
		return batch, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// GetForUpdate retrieves a batch with a row lock.
func (r *BatchRepo) GetForUpdate(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	var batch ledger.StockBatch

	q := r.baseSelect(companyID).
		Where(squirrel.Eq{"id": batchID}).
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return batch, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return batch, apperror.NewNotFound("stock batch", batchID.String())
		}
		return batch, fmt.Errorf("get batch for update: %w", err)
	}
	return batch, nil
}

// Update rewrites batch fields with optimistic locking.
func (r *BatchRepo) Update(ctx context.Context, batch *ledger.StockBatch) error {
	data := postgres.StructToMap(batch)
	delete(data, "id")
	delete(data, "company_id")
	delete(data, "version")

	q := r.builder.
		Update(batchTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": batch.ID}).
		Where(squirrel.Eq{"company_id": batch.CompanyID}).
		Where(squirrel.Eq{"version": batch.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock batch", batch.ID.String())
	}
	return nil
}

// Delete physically removes a batch.
func (r *BatchRepo) Delete(ctx context.Context, companyID, batchID id.ID) error {
	q := r.builder.
		Delete(batchTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"id": batchID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock batch", batchID.String())
	}
	return nil
}

// List retrieves batches ordered by received_at DESC for display.
func (r *BatchRepo) List(ctx context.Context, companyID id.ID, filter ledger.BatchFilter) ([]ledger.StockBatch, int64, error) {
	q := r.baseSelect(companyID)

	if filter.PowderID != nil {
		q = q.Where(squirrel.Eq{"powder_id": *filter.PowderID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.OnlyAvailable {
		q = q.Where(squirrel.Gt{"qty_remaining": 0})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"received_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"received_at": *filter.ToDate})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}

	q = q.OrderBy("received_at DESC", "id DESC")
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

	var batches []ledger.StockBatch
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list batches: %w", err)
	}
	return batches, total, nil
}

// ListAvailableForUpdate locks and returns all batches of a powder+supplier
// with qty_remaining > 0, oldest first. Must run inside a transaction.
func (r *BatchRepo) ListAvailableForUpdate(ctx context.Context, companyID, powderID, supplierID id.ID) ([]ledger.StockBatch, error) {
	q := r.baseSelect(companyID).
		Where(squirrel.Eq{"powder_id": powderID}).
		Where(squirrel.Eq{"supplier_id": supplierID}).
		Where(squirrel.Gt{"qty_remaining": 0}).
		OrderBy("received_at ASC", "id ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []ledger.StockBatch
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list available batches: %w", err)
	}
	return batches, nil
}

// AdjustRemaining applies a signed delta with a SQL-level range guard.
// The WHERE clause only matches when the new value stays inside
// [0, qty_received]; a zero-row update is classified against the
// current row state.
func (r *BatchRepo) AdjustRemaining(ctx context.Context, companyID, batchID id.ID, delta types.Quantity) error {
	sql := `
		UPDATE stock_batches
		SET qty_remaining = qty_remaining + $1,
		    version = version + 1,
		    updated_at = now()
		WHERE company_id = $2 AND id = $3
		  AND qty_remaining + $1 >= 0
		  AND qty_remaining + $1 <= qty_received
	`

	querier := r.txManager.GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, delta, companyID, batchID)
	if err != nil {
		return fmt.Errorf("adjust remaining: %w", err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Guard rejected (or the batch is gone). Classify.
	var exists int
	err = querier.QueryRow(ctx,
		`SELECT 1 FROM stock_batches WHERE company_id = $1 AND id = $2`,
		companyID, batchID).Scan(&exists)
	if err == pgx.ErrNoRows {
		return apperror.NewNotFound("stock batch", batchID.String())
	}
	if err != nil {
		return fmt.Errorf("adjust remaining: classify failure: %w", err)
	}

	if delta.IsNegative() {
		return ledger.ErrAdjustBelowZero
	}
	return ledger.ErrAdjustAboveReceived
}

// TotalAvailable sums qty_remaining over all batches of a powder,
// optionally narrowed to one supplier.
func (r *BatchRepo) TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error) {
	q := r.builder.
		Select("COALESCE(SUM(qty_remaining), 0)").
		From(batchTable).
		Where(squirrel.Eq{"company_id": companyID, "powder_id": powderID})
	if supplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *supplierID})
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return types.Zero(), fmt.Errorf("build query: %w", err)
	}

	var total types.Quantity
	querier := r.txManager.GetQuerier(ctx)
	err = querier.QueryRow(ctx, sql, args...).Scan(&total)
	if err != nil && err != pgx.ErrNoRows {
		return types.Zero(), fmt.Errorf("total available: %w", err)
	}
	return total, nil
}

// Ensure interface compliance.
var _ ledger.Repository = (*BatchRepo)(nil)
