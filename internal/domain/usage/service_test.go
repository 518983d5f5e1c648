package usage

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/allocation"
	"powderbook/internal/domain/ledger"
	"powderbook/pkg/numerator"
)

// --- In-memory fakes ---

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBatchRepo struct {
	batches map[id.ID]*ledger.StockBatch
}

func newFakeBatchRepo() *fakeBatchRepo {
	return &fakeBatchRepo{batches: make(map[id.ID]*ledger.StockBatch)}
}

func (r *fakeBatchRepo) add(b ledger.StockBatch) {
	stored := b
	r.batches[b.ID] = &stored
}

func (r *fakeBatchRepo) Create(ctx context.Context, batch *ledger.StockBatch) error {
	r.add(*batch)
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	if b, ok := r.batches[batchID]; ok && b.CompanyID == companyID {
		return *b, nil
	}
	return ledger.StockBatch{}, apperror.NewNotFound("stock batch", batchID.String())
}

func (r *fakeBatchRepo) GetForUpdate(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	return r.GetByID(ctx, companyID, batchID)
}

func (r *fakeBatchRepo) Update(ctx context.Context, batch *ledger.StockBatch) error {
	r.add(*batch)
	return nil
}

func (r *fakeBatchRepo) Delete(ctx context.Context, companyID, batchID id.ID) error {
	delete(r.batches, batchID)
	return nil
}

func (r *fakeBatchRepo) List(ctx context.Context, companyID id.ID, filter ledger.BatchFilter) ([]ledger.StockBatch, int64, error) {
	var out []ledger.StockBatch
	for _, b := range r.batches {
		if b.CompanyID == companyID {
			out = append(out, *b)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeBatchRepo) ListAvailableForUpdate(ctx context.Context, companyID, powderID, supplierID id.ID) ([]ledger.StockBatch, error) {
	var out []ledger.StockBatch
	for _, b := range r.batches {
		if b.CompanyID == companyID && b.PowderID == powderID && b.SupplierID == supplierID && b.QtyRemaining.IsPositive() {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ReceivedAt.Before(out[j].ReceivedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *fakeBatchRepo) AdjustRemaining(ctx context.Context, companyID, batchID id.ID, delta types.Quantity) error {
	b, ok := r.batches[batchID]
	if !ok || b.CompanyID != companyID {
		return apperror.NewNotFound("stock batch", batchID.String())
	}
	next := b.QtyRemaining.Add(delta)
	if next.IsNegative() {
		return ledger.ErrAdjustBelowZero
	}
	if next.GreaterThan(b.QtyReceived) {
		return ledger.ErrAdjustAboveReceived
	}
	b.QtyRemaining = next
	return nil
}

func (r *fakeBatchRepo) TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error) {
	total := types.Zero()
	for _, b := range r.batches {
		if b.CompanyID != companyID || b.PowderID != powderID {
			continue
		}
		if supplierID != nil && b.SupplierID != *supplierID {
			continue
		}
		total = total.Add(b.QtyRemaining)
	}
	return total, nil
}

type fakeTrailRepo struct {
	entries map[id.ID][]allocation.TrailEntry
}

func newFakeTrailRepo() *fakeTrailRepo {
	return &fakeTrailRepo{entries: make(map[id.ID][]allocation.TrailEntry)}
}

func (r *fakeTrailRepo) CreateEntries(ctx context.Context, entries []allocation.TrailEntry) error {
	for _, e := range entries {
		r.entries[e.UsageID] = append(r.entries[e.UsageID], e)
	}
	return nil
}

func (r *fakeTrailRepo) ListByUsage(ctx context.Context, companyID, usageID id.ID) ([]allocation.TrailEntry, error) {
	return r.entries[usageID], nil
}

func (r *fakeTrailRepo) DeleteByUsage(ctx context.Context, companyID, usageID id.ID) error {
	delete(r.entries, usageID)
	return nil
}

type fakeUsageRepo struct {
	usages map[id.ID]*Usage
}

func newFakeUsageRepo() *fakeUsageRepo {
	return &fakeUsageRepo{usages: make(map[id.ID]*Usage)}
}

func (r *fakeUsageRepo) Create(ctx context.Context, u *Usage) error {
	stored := *u
	r.usages[u.ID] = &stored
	return nil
}

func (r *fakeUsageRepo) GetByID(ctx context.Context, companyID, usageID id.ID) (Usage, error) {
	if u, ok := r.usages[usageID]; ok && u.CompanyID == companyID {
		return *u, nil
	}
	return Usage{}, apperror.NewNotFound("usage", usageID.String())
}

func (r *fakeUsageRepo) GetForUpdate(ctx context.Context, companyID, usageID id.ID) (Usage, error) {
	return r.GetByID(ctx, companyID, usageID)
}

func (r *fakeUsageRepo) Update(ctx context.Context, u *Usage) error {
	stored := *u
	r.usages[u.ID] = &stored
	return nil
}

func (r *fakeUsageRepo) Delete(ctx context.Context, companyID, usageID id.ID) error {
	delete(r.usages, usageID)
	return nil
}

func (r *fakeUsageRepo) List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Usage, int64, error) {
	var out []Usage
	for _, u := range r.usages {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, int64(len(out)), nil
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

// seqRow backs the numerator with an in-memory counter.
type seqRow struct{ val int64 }

func (m *seqRow) Scan(dest ...any) error {
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

type seqQuerier struct{ vals map[string]int64 }

func (m *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.vals == nil {
		m.vals = make(map[string]int64)
	}
	key, _ := args[0].(string)
	incr := int64(1)
	if len(args) == 2 {
		if v, ok := args[1].(int64); ok {
			incr = v
		}
	}
	m.vals[key] += incr
	return &seqRow{val: m.vals[key]}
}

// --- Fixture ---

type usageFixture struct {
	ctx        context.Context
	companyID  id.ID
	powderID   id.ID
	supplierID id.ID
	batchRepo  *fakeBatchRepo
	trailRepo  *fakeTrailRepo
	usageRepo  *fakeUsageRepo
	events     *fakeActivityRepo
	svc        *Service
	batchIDs   []id.ID
}

func newUsageFixture(t *testing.T, remaining ...string) *usageFixture {
	t.Helper()
	f := &usageFixture{
		companyID:  id.New(),
		powderID:   id.New(),
		supplierID: id.New(),
		batchRepo:  newFakeBatchRepo(),
		trailRepo:  newFakeTrailRepo(),
		usageRepo:  newFakeUsageRepo(),
		events:     &fakeActivityRepo{},
	}

	rates := []string{"5.00", "7.00", "9.00"}
	for i, qty := range remaining {
		b := ledger.NewStockBatch(
			f.companyID, f.powderID, f.supplierID,
			types.MustQuantity(qty),
			types.MustMoney(rates[i%len(rates)]),
			time.Date(2026, 1, i+1, 0, 0, 0, 0, time.UTC),
		)
		f.batchRepo.add(b)
		f.batchIDs = append(f.batchIDs, b.ID)
	}

	allocator := allocation.NewAllocator(f.batchRepo, f.trailRepo)
	f.svc = NewService(f.usageRepo, allocator, nopTxManager{}, numerator.New(&seqQuerier{}), activity.NewService(f.events))

	f.ctx = reqctx.WithUser(context.Background(), &reqctx.UserContext{
		UserID:    id.New().String(),
		CompanyID: f.companyID.String(),
		Role:      reqctx.RoleStaff,
	})
	return f
}

func (f *usageFixture) remaining(batchID id.ID) types.Quantity {
	return f.batchRepo.batches[batchID].QtyRemaining
}

// --- Tests ---

func TestService_Create(t *testing.T) {
	f := newUsageFixture(t, "10", "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("12"),
		UsedAt:     time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// 10*5 + 2*7 = 64
	assert.True(t, u.TotalCost.Equal(types.MustMoney("64")), "total = %s", u.TotalCost)
	assert.Equal(t, "USG-2026-00001", u.Number)

	assert.True(t, f.remaining(f.batchIDs[0]).IsZero())
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("8")))
	assert.Len(t, f.trailRepo.entries[u.ID], 2)

	stored, err := f.svc.Get(f.ctx, f.companyID, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalCost.Equal(u.TotalCost))
}

func TestService_CreateInsufficient(t *testing.T) {
	f := newUsageFixture(t, "3")

	_, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("5"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	// Batches untouched.
	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("3")))
}

func TestService_CreateRejectsNonPositive(t *testing.T) {
	f := newUsageFixture(t, "10")

	_, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("0"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestService_EditReallocates(t *testing.T) {
	f := newUsageFixture(t, "10", "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("12"),
	})
	require.NoError(t, err)

	edited, err := f.svc.Edit(f.ctx, EditInput{
		CompanyID:  f.companyID,
		UsageID:    u.ID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("4"),
	})
	require.NoError(t, err)

	// Editing is cancel + recreate: the new allocation starts from restored
	// stock, so 4 kg comes entirely from the oldest batch at rate 5.
	assert.True(t, edited.TotalCost.Equal(types.MustMoney("20")), "total = %s", edited.TotalCost)
	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("6")))
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("10")))
	assert.Len(t, f.trailRepo.entries[u.ID], 1)
}

func TestService_EditRejectsPowderChange(t *testing.T) {
	f := newUsageFixture(t, "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("2"),
	})
	require.NoError(t, err)

	_, err = f.svc.Edit(f.ctx, EditInput{
		CompanyID:  f.companyID,
		UsageID:    u.ID,
		PowderID:   id.New(),
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("2"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	// Allocation untouched by the rejected edit.
	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("8")))
}

func TestService_EditRejectsSupplierChange(t *testing.T) {
	f := newUsageFixture(t, "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("2"),
	})
	require.NoError(t, err)

	_, err = f.svc.Edit(f.ctx, EditInput{
		CompanyID:  f.companyID,
		UsageID:    u.ID,
		PowderID:   f.powderID,
		SupplierID: id.New(),
		QuantityKg: types.MustQuantity("2"),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("8")))
}

func TestService_CancelRestores(t *testing.T) {
	f := newUsageFixture(t, "10", "7.5")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("13"),
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Cancel(f.ctx, f.companyID, u.ID))

	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("10")))
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("7.5")))
	assert.Empty(t, f.trailRepo.entries[u.ID])

	_, err = f.svc.Get(f.ctx, f.companyID, u.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_CancelNotFound(t *testing.T) {
	f := newUsageFixture(t, "10")

	err := f.svc.Cancel(f.ctx, f.companyID, id.New())
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_CompanyIsolation(t *testing.T) {
	f := newUsageFixture(t, "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("2"),
	})
	require.NoError(t, err)

	// Another company cannot see or cancel the usage.
	otherCompany := id.New()
	_, err = f.svc.Get(f.ctx, otherCompany, u.ID)
	assert.True(t, apperror.IsNotFound(err))

	err = f.svc.Cancel(f.ctx, otherCompany, u.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ActivityRecorded(t *testing.T) {
	f := newUsageFixture(t, "10")

	u, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		PowderID:   f.powderID,
		SupplierID: f.supplierID,
		QuantityKg: types.MustQuantity("2"),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(f.ctx, f.companyID, u.ID))

	var kinds []string
	for _, e := range f.events.events {
		kinds = append(kinds, e.EventType)
	}
	assert.Equal(t, []string{activity.EventUsageCreated, activity.EventUsageCancelled}, kinds)
}
