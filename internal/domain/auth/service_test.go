package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/domain/activity"
)

type fakeUserRepo struct {
	users map[id.ID]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[id.ID]*User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *User) error {
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, userID id.ID) (*User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	stored := *u
	return &stored, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			stored := *u
			return &stored, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (r *fakeUserRepo) Update(ctx context.Context, user *User) error {
	if _, ok := r.users[user.ID]; !ok {
		return apperror.NewNotFound("user", user.ID.String())
	}
	stored := *user
	r.users[user.ID] = &stored
	return nil
}

func (r *fakeUserRepo) ListByCompany(ctx context.Context, companyID id.ID) ([]User, error) {
	var out []User
	for _, u := range r.users {
		if u.CompanyID == companyID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range r.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) CountOwners(ctx context.Context, companyID id.ID) (int, error) {
	n := 0
	for _, u := range r.users {
		if u.CompanyID == companyID && u.Role == reqctx.RoleOwner && u.IsActive {
			n++
		}
	}
	return n, nil
}

type fakeCompanyRepo struct {
	companies map[id.ID]*Company
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{companies: make(map[id.ID]*Company)}
}

func (r *fakeCompanyRepo) Create(ctx context.Context, company *Company) error {
	stored := *company
	r.companies[company.ID] = &stored
	return nil
}

func (r *fakeCompanyRepo) GetByID(ctx context.Context, companyID id.ID) (*Company, error) {
	c, ok := r.companies[companyID]
	if !ok {
		return nil, apperror.NewNotFound("company", companyID.String())
	}
	stored := *c
	return &stored, nil
}

func (r *fakeCompanyRepo) Update(ctx context.Context, company *Company) error {
	stored := *company
	r.companies[company.ID] = &stored
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*RefreshToken)}
}

func (r *fakeTokenRepo) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.tokens[token.TokenHash] = token
	return nil
}

func (r *fakeTokenRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	t, ok := r.tokens[tokenHash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", tokenHash)
	}
	return t, nil
}

func (r *fakeTokenRepo) RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.ID == tokenID {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error {
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			now := time.Now()
			t.RevokedAt = &now
			t.RevokedReason = reason
		}
	}
	return nil
}

func (r *fakeTokenRepo) CleanupExpiredTokens(ctx context.Context) (int, error) {
	return 0, nil
}

type fakeActivityRepo struct {
	events []activity.Event
}

func (r *fakeActivityRepo) Create(ctx context.Context, event *activity.Event) error {
	r.events = append(r.events, *event)
	return nil
}

func (r *fakeActivityRepo) List(ctx context.Context, companyID id.ID, filter activity.ListFilter) ([]activity.Event, int64, error) {
	return r.events, int64(len(r.events)), nil
}

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type authFixture struct {
	svc      *Service
	users    *fakeUserRepo
	tokens   *fakeTokenRepo
	events   *fakeActivityRepo
	company  *Company
	owner    *User
	password string
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newFakeUserRepo()
	companies := newFakeCompanyRepo()
	tokens := newFakeTokenRepo()
	events := &fakeActivityRepo{}

	svc := NewService(users, companies, tokens, nopTxManager{},
		NewJWTService(DefaultJWTConfig("test-secret")),
		activity.NewService(events),
		DefaultServiceConfig())

	company, owner, err := svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Acme Coatings",
		Email:       "owner@acme.test",
		Password:    "correct-horse",
		FullName:    "Sam Owner",
	})
	require.NoError(t, err)

	return &authFixture{
		svc:      svc,
		users:    users,
		tokens:   tokens,
		events:   events,
		company:  company,
		owner:    owner,
		password: "correct-horse",
	}
}

// ctxAs builds a context authenticated as the given user.
func ctxAs(u *User) context.Context {
	return reqctx.WithUser(context.Background(), &reqctx.UserContext{
		UserID:    u.ID.String(),
		CompanyID: u.CompanyID.String(),
		Email:     u.Email,
		Role:      u.Role,
	})
}

func TestRegister_CreatesCompanyAndOwner(t *testing.T) {
	f := newAuthFixture(t)

	assert.Equal(t, "Acme Coatings", f.company.Name)
	assert.Equal(t, reqctx.RoleOwner, f.owner.Role)
	assert.Equal(t, f.company.ID, f.owner.CompanyID)
	assert.NotEqual(t, "correct-horse", f.owner.PasswordHash)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Other Shop",
		Email:       "owner@acme.test",
		Password:    "another-pass",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestRegister_ShortPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.Register(context.Background(), RegisterRequest{
		CompanyName: "Other Shop",
		Email:       "x@y.test",
		Password:    "short",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestLogin_IssuesTokens(t *testing.T) {
	f := newAuthFixture(t)

	tokens, user, err := f.svc.Login(context.Background(), Credentials{
		Email:    "owner@acme.test",
		Password: f.password,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.NotNil(t, user.LastLoginAt)

	// access token round-trips through validation
	uc, err := NewJWTService(DefaultJWTConfig("test-secret")).ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, f.owner.ID.String(), uc.UserID)
	assert.Equal(t, f.company.ID.String(), uc.CompanyID)
	assert.Equal(t, reqctx.RoleOwner, uc.Role)
}

func TestLogin_WrongPasswordLocksAfterMaxAttempts(t *testing.T) {
	f := newAuthFixture(t)

	for i := 0; i < DefaultServiceConfig().MaxLoginAttempts; i++ {
		_, _, err := f.svc.Login(context.Background(), Credentials{
			Email:    "owner@acme.test",
			Password: "wrong",
		})
		require.Error(t, err)
	}

	// correct password no longer works while locked
	_, _, err := f.svc.Login(context.Background(), Credentials{
		Email:    "owner@acme.test",
		Password: f.password,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))
}

func TestRefreshToken_RotatesOldToken(t *testing.T) {
	f := newAuthFixture(t)

	tokens, _, err := f.svc.Login(context.Background(), Credentials{
		Email:    "owner@acme.test",
		Password: f.password,
	})
	require.NoError(t, err)

	fresh, err := f.svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)

	// the used token is revoked
	_, err = f.svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
}

func TestInviteUser_OwnerOnly(t *testing.T) {
	f := newAuthFixture(t)

	staff, err := f.svc.InviteUser(ctxAs(f.owner), InviteRequest{
		Email:    "staff@acme.test",
		Password: "staff-pass-1",
		FullName: "Pat Staff",
	})
	require.NoError(t, err)
	assert.Equal(t, reqctx.RoleStaff, staff.Role)
	assert.Equal(t, f.company.ID, staff.CompanyID)

	// staff cannot invite
	_, err = f.svc.InviteUser(ctxAs(staff), InviteRequest{
		Email:    "more@acme.test",
		Password: "whatever-12",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	// invite is recorded in the activity log
	require.NotEmpty(t, f.events.events)
	assert.Equal(t, activity.EventUserInvited, f.events.events[len(f.events.events)-1].EventType)
}

func TestUpdateCompany_ForbiddenForStaff(t *testing.T) {
	f := newAuthFixture(t)

	staff, err := f.svc.InviteUser(ctxAs(f.owner), InviteRequest{
		Email:    "staff@acme.test",
		Password: "staff-pass-1",
	})
	require.NoError(t, err)

	name := "Acme Industrial Coatings"
	_, err = f.svc.UpdateCompany(ctxAs(staff), UpdateCompanyRequest{Name: &name})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeForbidden))

	updated, err := f.svc.UpdateCompany(ctxAs(f.owner), UpdateCompanyRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
}

func TestUpdateUser_KeepsLastOwner(t *testing.T) {
	f := newAuthFixture(t)

	staffRole := reqctx.RoleStaff
	_, err := f.svc.UpdateUser(ctxAs(f.owner), f.owner.ID, UpdateUserRequest{Role: &staffRole})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))

	// with a second owner the demotion is allowed
	second, err := f.svc.InviteUser(ctxAs(f.owner), InviteRequest{
		Email:    "second@acme.test",
		Password: "second-pass",
		Role:     reqctx.RoleOwner,
	})
	require.NoError(t, err)

	updated, err := f.svc.UpdateUser(ctxAs(second), f.owner.ID, UpdateUserRequest{Role: &staffRole})
	require.NoError(t, err)
	assert.Equal(t, reqctx.RoleStaff, updated.Role)
}

func TestUpdateUser_DeactivationRevokesTokens(t *testing.T) {
	f := newAuthFixture(t)

	staff, err := f.svc.InviteUser(ctxAs(f.owner), InviteRequest{
		Email:    "staff@acme.test",
		Password: "staff-pass-1",
	})
	require.NoError(t, err)

	tokens, _, err := f.svc.Login(context.Background(), Credentials{
		Email:    "staff@acme.test",
		Password: "staff-pass-1",
	})
	require.NoError(t, err)

	inactive := false
	_, err = f.svc.UpdateUser(ctxAs(f.owner), staff.ID, UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(context.Background(), tokens.RefreshToken)
	require.Error(t, err)
}
