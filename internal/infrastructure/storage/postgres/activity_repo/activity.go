// Package activity_repo provides the PostgreSQL implementation of the
// append-only activity log.
package activity_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"powderbook/internal/core/id"
	"powderbook/internal/domain/activity"
	"powderbook/internal/infrastructure/storage/postgres"
)

const activityTable = "activity_log"

// ActivityRepo implements activity.Repository.
type ActivityRepo struct {
	txManager  *postgres.TxManager
	builder    squirrel.StatementBuilderType
	selectCols []string
}

// NewActivityRepo creates a new activity log repository.
func NewActivityRepo(txManager *postgres.TxManager) *ActivityRepo {
	return &ActivityRepo{
		txManager:  txManager,
		builder:    squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		selectCols: postgres.ExtractDBColumns[activity.Event](),
	}
}

// Create appends an event.
func (r *ActivityRepo) Create(ctx context.Context, event *activity.Event) error {
	q := r.builder.
		Insert(activityTable).
		SetMap(postgres.StructToMap(event))

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// List retrieves events newest first.
func (r *ActivityRepo) List(ctx context.Context, companyID id.ID, filter activity.ListFilter) ([]activity.Event, int64, error) {
	q := r.builder.
		Select(r.selectCols...).
		From(activityTable).
		Where(squirrel.Eq{"company_id": companyID})

	if len(filter.EventTypes) > 0 {
		q = q.Where(squirrel.Eq{"event_type": filter.EventTypes})
	}
	if filter.RefType != "" {
		q = q.Where(squirrel.Eq{"ref_type": filter.RefType})
	}
	if filter.RefID != nil {
		q = q.Where(squirrel.Eq{"ref_id": *filter.RefID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"created_at": *filter.ToDate})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity events: %w", err)
	}

	q = q.OrderBy("created_at DESC", "id DESC")
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

	var events []activity.Event
	if err := pgxscan.Select(ctx, querier, &events, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("list activity events: %w", err)
	}
	return events, total, nil
}

// Ensure interface compliance.
var _ activity.Repository = (*ActivityRepo)(nil)
