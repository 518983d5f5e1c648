package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/activity"
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	batches map[id.ID]*StockBatch
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{batches: make(map[id.ID]*StockBatch)}
}

func (r *fakeRepo) Create(ctx context.Context, b *StockBatch) error {
	stored := *b
	r.batches[b.ID] = &stored
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, companyID, batchID id.ID) (StockBatch, error) {
	if b, ok := r.batches[batchID]; ok && b.CompanyID == companyID {
		return *b, nil
	}
	return StockBatch{}, apperror.NewNotFound("stock batch", batchID.String())
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, companyID, batchID id.ID) (StockBatch, error) {
	return r.GetByID(ctx, companyID, batchID)
}

func (r *fakeRepo) Update(ctx context.Context, b *StockBatch) error {
	stored := *b
	r.batches[b.ID] = &stored
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, companyID, batchID id.ID) error {
	delete(r.batches, batchID)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, companyID id.ID, filter BatchFilter) ([]StockBatch, int64, error) {
	var out []StockBatch
	for _, b := range r.batches {
		if b.CompanyID == companyID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) ListAvailableForUpdate(ctx context.Context, companyID, powderID, supplierID id.ID) ([]StockBatch, error) {
	return nil, nil
}

func (r *fakeRepo) AdjustRemaining(ctx context.Context, companyID, batchID id.ID, delta types.Quantity) error {
	b := r.batches[batchID]
	b.QtyRemaining = b.QtyRemaining.Add(delta)
	return nil
}

func (r *fakeRepo) TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error) {
	total := types.Zero()
	for _, b := range r.batches {
		if b.CompanyID == companyID && b.PowderID == powderID {
			total = total.Add(b.QtyRemaining)
		}
	}
	return total, nil
}

type fakeActivityRepo struct {
	events []activity.Event
}

func (r *fakeActivityRepo) Create(ctx context.Context, e *activity.Event) error {
	r.events = append(r.events, *e)
	return nil
}

func (r *fakeActivityRepo) List(ctx context.Context, companyID id.ID, filter activity.ListFilter) ([]activity.Event, int64, error) {
	return r.events, int64(len(r.events)), nil
}

func newLedgerService(t *testing.T) (*Service, *fakeRepo, id.ID, context.Context) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo, nopTxManager{}, activity.NewService(&fakeActivityRepo{}))
	companyID := id.New()
	ctx := reqctx.WithUser(context.Background(), &reqctx.UserContext{
		UserID:    id.New().String(),
		CompanyID: companyID.String(),
		Role:      reqctx.RoleStaff,
	})
	return svc, repo, companyID, ctx
}

func validAddInput(companyID id.ID) AddStockInput {
	return AddStockInput{
		CompanyID:  companyID,
		PowderID:   id.New(),
		SupplierID: id.New(),
		QtyKg:      types.MustQuantity("25"),
		RatePerKg:  types.MustMoney("6.40"),
		ReceivedAt: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestService_AddStock(t *testing.T) {
	svc, repo, companyID, ctx := newLedgerService(t)

	batch, err := svc.AddStock(ctx, validAddInput(companyID))
	require.NoError(t, err)

	stored := repo.batches[batch.ID]
	assert.True(t, stored.QtyRemaining.Equal(stored.QtyReceived))
	assert.True(t, stored.IsEditable())
}

func TestService_AddStockValidation(t *testing.T) {
	svc, _, companyID, ctx := newLedgerService(t)

	cases := []struct {
		name   string
		mutate func(*AddStockInput)
	}{
		{"zero quantity", func(in *AddStockInput) { in.QtyKg = types.MustQuantity("0") }},
		{"negative quantity", func(in *AddStockInput) { in.QtyKg = types.MustQuantity("-1") }},
		{"zero rate", func(in *AddStockInput) { in.RatePerKg = types.MustMoney("0") }},
		{"missing powder", func(in *AddStockInput) { in.PowderID = id.Nil() }},
		{"missing date", func(in *AddStockInput) { in.ReceivedAt = time.Time{} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validAddInput(companyID)
			tc.mutate(&input)
			_, err := svc.AddStock(ctx, input)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
		})
	}
}

func TestService_EditBatchUntouched(t *testing.T) {
	svc, repo, companyID, ctx := newLedgerService(t)

	batch, err := svc.AddStock(ctx, validAddInput(companyID))
	require.NoError(t, err)

	edited, err := svc.EditBatch(ctx, EditStockInput{
		CompanyID:  companyID,
		BatchID:    batch.ID,
		PowderID:   batch.PowderID,
		SupplierID: batch.SupplierID,
		QtyKg:      types.MustQuantity("30"),
		RatePerKg:  types.MustMoney("7.00"),
		ReceivedAt: batch.ReceivedAt,
	})
	require.NoError(t, err)

	// Edit resets both quantities: equivalent to delete + add.
	assert.True(t, edited.QtyReceived.Equal(types.MustQuantity("30")))
	assert.True(t, edited.QtyRemaining.Equal(types.MustQuantity("30")))
	assert.True(t, repo.batches[batch.ID].QtyRemaining.Equal(types.MustQuantity("30")))
}

func TestService_EditBatchLocked(t *testing.T) {
	svc, repo, companyID, ctx := newLedgerService(t)

	batch, err := svc.AddStock(ctx, validAddInput(companyID))
	require.NoError(t, err)

	// Simulate consumption.
	repo.batches[batch.ID].QtyRemaining = types.MustQuantity("20")

	_, err = svc.EditBatch(ctx, EditStockInput{
		CompanyID:  companyID,
		BatchID:    batch.ID,
		PowderID:   batch.PowderID,
		SupplierID: batch.SupplierID,
		QtyKg:      types.MustQuantity("30"),
		RatePerKg:  types.MustMoney("7.00"),
		ReceivedAt: batch.ReceivedAt,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBatchLocked))
}

func TestService_DeleteBatchLocked(t *testing.T) {
	svc, repo, companyID, ctx := newLedgerService(t)

	batch, err := svc.AddStock(ctx, validAddInput(companyID))
	require.NoError(t, err)

	repo.batches[batch.ID].QtyRemaining = types.MustQuantity("0")

	err = svc.DeleteBatch(ctx, companyID, batch.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeBatchLocked))

	// Fully consumed batches stay in the ledger for history.
	assert.Contains(t, repo.batches, batch.ID)
}

func TestService_DeleteBatchUntouched(t *testing.T) {
	svc, repo, companyID, ctx := newLedgerService(t)

	batch, err := svc.AddStock(ctx, validAddInput(companyID))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBatch(ctx, companyID, batch.ID))
	assert.NotContains(t, repo.batches, batch.ID)
}
