// Package usage_repo provides the PostgreSQL implementation of usage
// documents and their consumption trail.
package usage_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain/usage"
	"powderbook/internal/infrastructure/storage/postgres"
)

const usageTable = "usages"

// UsageRepo implements usage.Repository.
type UsageRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewUsageRepo creates a new usage repository.
func NewUsageRepo(txManager *postgres.TxManager) *UsageRepo {
	return &UsageRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[usage.Usage](),
	}
}

func (r *UsageRepo) baseSelect(companyID id.ID) squirrel.SelectBuilder {
	return r.builder.
		Select(r.selectCols...).
		From(usageTable).
		Where(squirrel.Eq{"company_id": companyID})
}

// Create inserts a usage row.
func (r *UsageRepo) Create(ctx context.Context, u *usage.Usage) error {
	data := postgres.StructToMap(u)

	q := r.builder.
		Insert(usageTable).
		SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	return nil
}

// GetByID retrieves a usage within a company.
func (r *UsageRepo) GetByID(ctx context.Context, companyID, usageID id.ID) (usage.Usage, error) {
	return r.get(ctx, companyID, usageID, false)
}

// GetForUpdate retrieves a usage with a row lock.
func (r *UsageRepo) GetForUpdate(ctx context.Context, companyID, usageID id.ID) (usage.Usage, error) {
	return r.get(ctx, companyID, usageID, true)
}

func (r *UsageRepo) get(ctx context.Context, companyID, usageID id.ID, forUpdate bool) (usage.Usage, error) {
	var u usage.Usage

	q := r.baseSelect(companyID).
		Where(squirrel.Eq{"id": usageID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return u, fmt.Errorf("build query: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &u, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return u, apperror.NewNotFound("usage", usageID.String())
		}
		return u, fmt.Errorf("get usage: %w", err)
	}
	return u, nil
}

// Update rewrites usage fields with optimistic locking.
func (r *UsageRepo) Update(ctx context.Context, u *usage.Usage) error {
	data := postgres.StructToMap(u)
	delete(data, "id")
	delete(data, "company_id")
	delete(data, "version")

	q := r.builder.
		Update(usageTable).
		SetMap(data).
		Set("version", squirrel.Expr("version + 1")).
		Where(squirrel.Eq{"id": u.ID}).
		Where(squirrel.Eq{"company_id": u.CompanyID}).
		Where(squirrel.Eq{"version": u.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("usage", u.ID.String())
	}
	return nil
}

// Delete physically removes a usage.
func (r *UsageRepo) Delete(ctx context.Context, companyID, usageID id.ID) error {
	q := r.builder.
		Delete(usageTable).
		Where(squirrel.Eq{"company_id": companyID}).
		Where(squirrel.Eq{"id": usageID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete usage: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("usage", usageID.String())
	}
	return nil
}

// List retrieves usages newest first.
func (r *UsageRepo) List(ctx context.Context, companyID id.ID, filter usage.ListFilter) ([]usage.Usage, int64, error) {
	q := r.baseSelect(companyID)

	if filter.PowderID != nil {
		q = q.Where(squirrel.Eq{"powder_id": *filter.PowderID})
	}
	if filter.SupplierID != nil {
		q = q.Where(squirrel.Eq{"supplier_id": *filter.SupplierID})
	}
	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
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
		return nil, 0, fmt.Errorf("count usages: %w", err)
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

	var usages []usage.Usage
	if err := pgxscan.Select(ctx, querier, &usages, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list usages: %w", err)
	}
	return usages, total, nil
}

// Ensure interface compliance.
var _ usage.Repository = (*UsageRepo)(nil)
