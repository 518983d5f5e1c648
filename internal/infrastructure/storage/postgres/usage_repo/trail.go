package usage_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"powderbook/internal/core/id"
	"powderbook/internal/domain/allocation"
	"powderbook/internal/infrastructure/storage/postgres"
)

const trailTable = "usage_trail"

// Trail entries are written in bulk on every allocation, so inserts go
// through the COPY protocol instead of row-by-row INSERTs.
var trailColumns = []string{"id", "company_id", "usage_id", "stock_batch_id", "qty_used", "rate_per_kg"}

// TrailRepo implements allocation.TrailRepository.
type TrailRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	inserter  *postgres.BatchInserter
}

// NewTrailRepo creates a new trail repository.
func NewTrailRepo(txManager *postgres.TxManager) *TrailRepo {
	return &TrailRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		inserter:  postgres.NewBatchInserter(txManager),
	}
}

// CreateEntries bulk inserts trail entries via COPY.
func (r *TrailRepo) CreateEntries(ctx context.Context, entries []allocation.TrailEntry) error {
	if len(entries) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{
			e.ID, e.CompanyID, e.UsageID, e.BatchID, e.QtyUsed, e.RatePerKg,
		})
	}

	n, err := r.inserter.CopyFromSlice(ctx, trailTable, trailColumns, rows)
	if err != nil {
		return fmt.Errorf("copy trail entries: %w", err)
	}
	if n != int64(len(entries)) {
		return fmt.Errorf("copy trail entries: wrote %d of %d rows", n, len(entries))
	}
	return nil
}

// ListByUsage retrieves all entries of a usage.
func (r *TrailRepo) ListByUsage(ctx context.Context, companyID, usageID id.ID) ([]allocation.TrailEntry, error) {
	q := r.builder.
		Select(trailColumns...).
		From(trailTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"usage_id": usageID}).
		OrderBy("id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var entries []allocation.TrailEntry
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
		return nil, fmt.Errorf("list trail entries: %w", err)
	}
	return entries, nil
}

// DeleteByUsage removes all entries of a usage.
func (r *TrailRepo) DeleteByUsage(ctx context.Context, companyID, usageID id.ID) error {
	q := r.builder.
		Delete(trailTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"usage_id": usageID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete trail entries: %w", err)
	}
	return nil
}

// Ensure interface compliance.
var _ allocation.TrailRepository = (*TrailRepo)(nil)
