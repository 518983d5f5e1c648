package allocation

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/ledger"
)

// --- In-memory fakes ---

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
	entries map[id.ID][]TrailEntry // keyed by usage ID
}

func newFakeTrailRepo() *fakeTrailRepo {
	return &fakeTrailRepo{entries: make(map[id.ID][]TrailEntry)}
}

func (r *fakeTrailRepo) CreateEntries(ctx context.Context, entries []TrailEntry) error {
	for _, e := range entries {
		r.entries[e.UsageID] = append(r.entries[e.UsageID], e)
	}
	return nil
}

func (r *fakeTrailRepo) ListByUsage(ctx context.Context, companyID, usageID id.ID) ([]TrailEntry, error) {
	return r.entries[usageID], nil
}

func (r *fakeTrailRepo) DeleteByUsage(ctx context.Context, companyID, usageID id.ID) error {
	delete(r.entries, usageID)
	return nil
}

// --- Fixtures ---

type allocFixture struct {
	companyID  id.ID
	powderID   id.ID
	supplierID id.ID
	batchRepo  *fakeBatchRepo
	trailRepo  *fakeTrailRepo
	allocator  *Allocator
	batchIDs   []id.ID
}

func newAllocFixture(t *testing.T, remaining ...string) *allocFixture {
	t.Helper()
	f := &allocFixture{
		companyID:  id.New(),
		powderID:   id.New(),
		supplierID: id.New(),
		batchRepo:  newFakeBatchRepo(),
		trailRepo:  newFakeTrailRepo(),
	}
	f.allocator = NewAllocator(f.batchRepo, f.trailRepo)

	rates := []string{"5.00", "7.00", "9.00", "11.00"}
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
	return f
}

func (f *allocFixture) remaining(batchID id.ID) types.Quantity {
	return f.batchRepo.batches[batchID].QtyRemaining
}

// conservation: sum(received) - sum(remaining) must equal sum of live trail.
func (f *allocFixture) assertConserved(t *testing.T) {
	t.Helper()
	consumed := types.Zero()
	for _, b := range f.batchRepo.batches {
		consumed = consumed.Add(b.QtyReceived.Sub(b.QtyRemaining))
	}
	trail := types.Zero()
	for _, entries := range f.trailRepo.entries {
		for _, e := range entries {
			trail = trail.Add(e.QtyUsed)
		}
	}
	assert.True(t, consumed.Equal(trail), "consumed %s != trail %s", consumed, trail)
}

// --- Tests ---

func TestAllocator_Allocate(t *testing.T) {
	f := newAllocFixture(t, "10", "10")
	usageID := id.New()

	entries, total, err := f.allocator.Allocate(context.Background(), f.companyID, f.powderID, f.supplierID, usageID, types.MustQuantity("12"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// 10*5 + 2*7 = 64
	assert.True(t, total.Equal(types.MustMoney("64")), "total = %s", total)

	assert.True(t, f.remaining(f.batchIDs[0]).IsZero())
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("8")))

	for _, e := range entries {
		assert.Equal(t, usageID, e.UsageID)
		assert.Equal(t, f.companyID, e.CompanyID)
	}
	f.assertConserved(t)
}

func TestAllocator_AllocateIgnoresOtherSuppliers(t *testing.T) {
	f := newAllocFixture(t, "10")
	ctx := context.Background()

	// Same powder, different supplier: must not fund this allocation.
	other := ledger.NewStockBatch(
		f.companyID, f.powderID, id.New(),
		types.MustQuantity("50"),
		types.MustMoney("1.00"),
		time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
	)
	f.batchRepo.add(other)

	_, _, err := f.allocator.Allocate(ctx, f.companyID, f.powderID, f.supplierID, id.New(), types.MustQuantity("12"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	assert.True(t, f.batchRepo.batches[other.ID].QtyRemaining.Equal(types.MustQuantity("50")))
}

func TestAllocator_AllocateInsufficientLeavesStockUntouched(t *testing.T) {
	f := newAllocFixture(t, "3", "4")
	usageID := id.New()

	_, _, err := f.allocator.Allocate(context.Background(), f.companyID, f.powderID, f.supplierID, usageID, types.MustQuantity("8"))
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("3")))
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("4")))
	assert.Empty(t, f.trailRepo.entries[usageID])
}

func TestAllocator_ReverseRestoresExactly(t *testing.T) {
	f := newAllocFixture(t, "10", "7.5", "2")
	usageID := id.New()
	ctx := context.Background()

	before := make(map[id.ID]types.Quantity)
	for _, bid := range f.batchIDs {
		before[bid] = f.remaining(bid)
	}

	_, _, err := f.allocator.Allocate(ctx, f.companyID, f.powderID, f.supplierID, usageID, types.MustQuantity("15.25"))
	require.NoError(t, err)
	f.assertConserved(t)

	restored, err := f.allocator.Reverse(ctx, f.companyID, usageID)
	require.NoError(t, err)
	assert.True(t, restored.Equal(types.MustQuantity("15.25")), "restored = %s", restored)

	// Every batch back to its pre-allocation quantity, trail gone.
	for _, bid := range f.batchIDs {
		assert.True(t, f.remaining(bid).Equal(before[bid]), "batch %s", bid)
	}
	assert.Empty(t, f.trailRepo.entries[usageID])
	f.assertConserved(t)
}

func TestAllocator_ReverseIsDeterministic(t *testing.T) {
	f := newAllocFixture(t, "5", "5")
	ctx := context.Background()

	// Allocate/reverse cycles always come back to the same ledger state.
	for i := 0; i < 3; i++ {
		usageID := id.New()
		_, _, err := f.allocator.Allocate(ctx, f.companyID, f.powderID, f.supplierID, usageID, types.MustQuantity("7"))
		require.NoError(t, err)
		_, err = f.allocator.Reverse(ctx, f.companyID, usageID)
		require.NoError(t, err)
	}

	assert.True(t, f.remaining(f.batchIDs[0]).Equal(types.MustQuantity("5")))
	assert.True(t, f.remaining(f.batchIDs[1]).Equal(types.MustQuantity("5")))
}

func TestAllocator_ReverseDetectsCorruption(t *testing.T) {
	f := newAllocFixture(t, "10")
	usageID := id.New()
	ctx := context.Background()

	_, _, err := f.allocator.Allocate(ctx, f.companyID, f.powderID, f.supplierID, usageID, types.MustQuantity("4"))
	require.NoError(t, err)

	// Simulate an out-of-band restore: the batch is already full, so replaying
	// the trail would exceed qty_received.
	f.batchRepo.batches[f.batchIDs[0]].QtyRemaining = types.MustQuantity("10")

	_, err = f.allocator.Reverse(ctx, f.companyID, usageID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeLedgerCorruption))

	// The trail must survive a failed reversal.
	assert.NotEmpty(t, f.trailRepo.entries[usageID])
}

func TestAllocator_ReverseEmptyTrail(t *testing.T) {
	f := newAllocFixture(t, "10")

	restored, err := f.allocator.Reverse(context.Background(), f.companyID, id.New())
	require.NoError(t, err)
	assert.True(t, restored.IsZero())
}
