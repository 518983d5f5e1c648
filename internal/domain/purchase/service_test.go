package purchase

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/types"
	"powderbook/internal/domain/activity"
	"powderbook/internal/domain/ledger"
	"powderbook/pkg/numerator"
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeOrderRepo struct {
	orders  map[id.ID]*Order
	history []HistoryEntry
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[id.ID]*Order)}
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *Order) error {
	stored := *o
	r.orders[o.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, companyID, orderID id.ID) (Order, error) {
	if o, ok := r.orders[orderID]; ok && o.CompanyID == companyID {
		return *o, nil
	}
	return Order{}, apperror.NewNotFound("purchase order", orderID.String())
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, companyID, orderID id.ID) (Order, error) {
	return r.GetByID(ctx, companyID, orderID)
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, o *Order) error {
	stored := *o
	r.orders[o.ID] = &stored
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, companyID id.ID, filter ListFilter) ([]Order, int64, error) {
	var out []Order
	for _, o := range r.orders {
		if o.CompanyID == companyID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) AddHistory(ctx context.Context, entry *HistoryEntry) error {
	r.history = append(r.history, *entry)
	return nil
}

func (r *fakeOrderRepo) ListHistory(ctx context.Context, companyID, orderID id.ID) ([]HistoryEntry, error) {
	var out []HistoryEntry
	for _, h := range r.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeBatchRepo struct {
	batches []ledger.StockBatch
}

func (r *fakeBatchRepo) Create(ctx context.Context, b *ledger.StockBatch) error {
	r.batches = append(r.batches, *b)
	return nil
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	return ledger.StockBatch{}, apperror.NewNotFound("stock batch", batchID.String())
}

func (r *fakeBatchRepo) GetForUpdate(ctx context.Context, companyID, batchID id.ID) (ledger.StockBatch, error) {
	return ledger.StockBatch{}, apperror.NewNotFound("stock batch", batchID.String())
}

func (r *fakeBatchRepo) Update(ctx context.Context, b *ledger.StockBatch) error { return nil }

func (r *fakeBatchRepo) Delete(ctx context.Context, companyID, batchID id.ID) error { return nil }

func (r *fakeBatchRepo) List(ctx context.Context, companyID id.ID, filter ledger.BatchFilter) ([]ledger.StockBatch, int64, error) {
	return r.batches, int64(len(r.batches)), nil
}

func (r *fakeBatchRepo) ListAvailableForUpdate(ctx context.Context, companyID, powderID, supplierID id.ID) ([]ledger.StockBatch, error) {
	return nil, nil
}

func (r *fakeBatchRepo) AdjustRemaining(ctx context.Context, companyID, batchID id.ID, delta types.Quantity) error {
	return nil
}

func (r *fakeBatchRepo) TotalAvailable(ctx context.Context, companyID, powderID id.ID, supplierID *id.ID) (types.Quantity, error) {
	return types.Zero(), nil
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
	m.vals[key]++
	return &seqRow{val: m.vals[key]}
}

type orderFixture struct {
	ctx        context.Context
	companyID  id.ID
	supplierID id.ID
	orderRepo  *fakeOrderRepo
	batchRepo  *fakeBatchRepo
	svc        *Service
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		companyID:  id.New(),
		supplierID: id.New(),
		orderRepo:  newFakeOrderRepo(),
		batchRepo:  &fakeBatchRepo{},
	}
	f.svc = NewService(f.orderRepo, f.batchRepo, nopTxManager{}, numerator.New(&seqQuerier{}), activity.NewService(&fakeActivityRepo{}))
	f.ctx = reqctx.WithUser(context.Background(), &reqctx.UserContext{
		UserID:    id.New().String(),
		CompanyID: f.companyID.String(),
		Role:      reqctx.RoleStaff,
	})
	return f
}

func (f *orderFixture) createOrder(t *testing.T) *Order {
	t.Helper()
	order, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		SupplierID: f.supplierID,
		Items: []CreateItemInput{
			{PowderID: id.New(), QtyKg: types.MustQuantity("20"), RatePerKg: types.MustMoney("5.50")},
			{PowderID: id.New(), QtyKg: types.MustQuantity("10"), RatePerKg: types.MustMoney("8.00")},
		},
	})
	require.NoError(t, err)
	return order
}

func TestService_CreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order := f.createOrder(t)
	assert.Equal(t, StatusOpen, order.Status)
	assert.Contains(t, order.Number, "PO-")
	// 20*5.5 + 10*8 = 190
	assert.True(t, order.TotalValue().Equal(types.MustMoney("190")))

	history, err := f.svc.History(f.ctx, f.companyID, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, HistoryCreated, history[0].Event)
}

func TestService_CreateOrderValidation(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		SupplierID: f.supplierID,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(f.ctx, CreateInput{
		CompanyID:  f.companyID,
		SupplierID: f.supplierID,
		Items: []CreateItemInput{
			{PowderID: id.New(), QtyKg: types.MustQuantity("0"), RatePerKg: types.MustMoney("5")},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestService_CancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	cancelled, err := f.svc.Cancel(f.ctx, f.companyID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	// Closed orders never reopen.
	_, err = f.svc.Cancel(f.ctx, f.companyID, order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOrderClosed))

	_, err = f.svc.Deliver(f.ctx, f.companyID, order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOrderClosed))

	// Cancellation creates no stock.
	assert.Empty(t, f.batchRepo.batches)
}

func TestService_DeliverOrder(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	delivered, err := f.svc.Deliver(f.ctx, f.companyID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// One batch per item, at the item's agreed rate, linked to the order.
	require.Len(t, f.batchRepo.batches, 2)
	for i, batch := range f.batchRepo.batches {
		item := order.Items[i]
		assert.Equal(t, item.PowderID, batch.PowderID)
		assert.Equal(t, f.supplierID, batch.SupplierID)
		assert.True(t, batch.QtyReceived.Equal(item.QtyKg))
		assert.True(t, batch.QtyRemaining.Equal(item.QtyKg))
		assert.True(t, batch.RatePerKg.Equal(item.RatePerKg))
		require.NotNil(t, batch.PurchaseOrderID)
		assert.Equal(t, order.ID, *batch.PurchaseOrderID)
	}

	// Delivery is one-shot.
	_, err = f.svc.Deliver(f.ctx, f.companyID, order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOrderClosed))

	history, err := f.svc.History(f.ctx, f.companyID, order.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, HistoryDelivered, history[1].Event)
}

func TestService_OrderCompanyIsolation(t *testing.T) {
	f := newOrderFixture(t)
	order := f.createOrder(t)

	_, err := f.svc.Get(f.ctx, id.New(), order.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.Deliver(f.ctx, id.New(), order.ID)
	assert.True(t, apperror.IsNotFound(err))
}
