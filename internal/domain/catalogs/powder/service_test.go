package powder

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/domain"
	"powderbook/pkg/numerator"
)

type fakeRepo struct {
	items map[id.ID]*Powder
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[id.ID]*Powder)}
}

func (r *fakeRepo) Create(ctx context.Context, p *Powder) error {
	r.items[p.ID] = p
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, companyID, entityID id.ID) (*Powder, error) {
	p, ok := r.items[entityID]
	if !ok || p.CompanyID != companyID {
		return nil, apperror.NewNotFound("powder", entityID.String())
	}
	return p, nil
}

func (r *fakeRepo) GetByCode(ctx context.Context, companyID id.ID, code string) (*Powder, error) {
	for _, p := range r.items {
		if p.CompanyID == companyID && p.Code == code {
			return p, nil
		}
	}
	return nil, apperror.NewNotFound("powder", code)
}

func (r *fakeRepo) Update(ctx context.Context, p *Powder) error {
	if _, ok := r.items[p.ID]; !ok {
		return apperror.NewNotFound("powder", p.ID.String())
	}
	r.items[p.ID] = p
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, companyID, entityID id.ID) error {
	delete(r.items, entityID)
	return nil
}

func (r *fakeRepo) SetDeletionMark(ctx context.Context, companyID, entityID id.ID, marked bool) error {
	p, ok := r.items[entityID]
	if !ok || p.CompanyID != companyID {
		return apperror.NewNotFound("powder", entityID.String())
	}
	p.DeletionMark = marked
	return nil
}

func (r *fakeRepo) List(ctx context.Context, companyID id.ID, f domain.ListFilter) (domain.ListResult[*Powder], error) {
	var items []*Powder
	for _, p := range r.items {
		if p.CompanyID == companyID && (f.IncludeDeleted || !p.DeletionMark) {
			items = append(items, p)
		}
	}
	return domain.ListResult[*Powder]{Items: items, TotalCount: int64(len(items))}, nil
}

func (r *fakeRepo) Exists(ctx context.Context, companyID, entityID id.ID) (bool, error) {
	p, ok := r.items[entityID]
	return ok && p.CompanyID == companyID, nil
}

func (r *fakeRepo) ExistsByCode(ctx context.Context, companyID id.ID, code string) (bool, error) {
	for _, p := range r.items {
		if p.CompanyID == companyID && p.Code == code {
			return true, nil
		}
	}
	return false, nil
}

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// seqQuerier backs the numerator with an in-memory counter per key.
type seqQuerier struct {
	values map[string]int64
}

func (q *seqQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if q.values == nil {
		q.values = make(map[string]int64)
	}
	key := args[0].(string)
	inc := int64(1)
	if len(args) > 1 {
		if v, ok := args[1].(int64); ok {
			inc = v
		}
	}
	q.values[key] += inc
	return seqRow{val: q.values[key]}
}

type seqRow struct{ val int64 }

func (r seqRow) Scan(dest ...any) error {
	*(dest[0].(*int64)) = r.val
	return nil
}

func TestCreate_GeneratesCodeWhenEmpty(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nopTxManager{}, numerator.New(&seqQuerier{}))
	companyID := id.New()

	p := NewPowder(companyID, "", "RAL 9005 Jet Black")
	require.NoError(t, svc.Create(context.Background(), p))
	assert.Equal(t, "PW-0001", p.Code)

	p2 := NewPowder(companyID, "", "RAL 7016 Anthracite")
	require.NoError(t, svc.Create(context.Background(), p2))
	assert.Equal(t, "PW-0002", p2.Code)
}

func TestCreate_KeepsProvidedCode(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nopTxManager{}, numerator.New(&seqQuerier{}))

	p := NewPowder(id.New(), "BLACK-MATTE", "RAL 9005 Matte")
	require.NoError(t, svc.Create(context.Background(), p))
	assert.Equal(t, "BLACK-MATTE", p.Code)
}

func TestCreate_RequiresName(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nopTxManager{}, numerator.New(&seqQuerier{}))

	p := NewPowder(id.New(), "X-1", "")
	err := svc.Create(context.Background(), p)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
	assert.Empty(t, repo.items)
}

func TestCodeSequence_IsPerCompany(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nopTxManager{}, numerator.New(&seqQuerier{}))

	a := NewPowder(id.New(), "", "Powder A")
	require.NoError(t, svc.Create(context.Background(), a))
	b := NewPowder(id.New(), "", "Powder B")
	require.NoError(t, svc.Create(context.Background(), b))

	assert.Equal(t, "PW-0001", a.Code)
	assert.Equal(t, "PW-0001", b.Code)
}
