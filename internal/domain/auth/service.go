package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/core/tx"
	"powderbook/internal/domain/activity"
	"powderbook/pkg/logger"
)

// ServiceConfig holds auth service configuration.
type ServiceConfig struct {
	MaxLoginAttempts   int
	LockDuration       time.Duration
	PasswordMinLength  int
	RefreshTokenExpiry time.Duration
}

// DefaultServiceConfig returns default configuration.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxLoginAttempts:   5,
		LockDuration:       15 * time.Minute,
		PasswordMinLength:  8,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}

// Service provides authentication and account management logic.
type Service struct {
	userRepo    UserRepository
	companyRepo CompanyRepository
	tokenRepo   TokenRepository
	txManager   tx.Manager
	jwtService  *JWTService
	activity    *activity.Service
	config      ServiceConfig
}

// NewService creates a new auth service.
func NewService(
	userRepo UserRepository,
	companyRepo CompanyRepository,
	tokenRepo TokenRepository,
	txManager tx.Manager,
	jwtService *JWTService,
	activitySvc *activity.Service,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		tokenRepo:   tokenRepo,
		txManager:   txManager,
		jwtService:  jwtService,
		activity:    activitySvc,
		config:      config,
	}
}

// Register creates a company together with its owner account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Company, *User, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, nil, apperror.NewValidation("company name is required").WithDetail("field", "companyName")
	}
	if req.Email == "" {
		return nil, nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("check email exists: %w", err)
	}
	if exists {
		return nil, nil, apperror.NewConflict("email already registered").WithDetail("email", req.Email)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	company := NewCompany(strings.TrimSpace(req.CompanyName))
	owner := NewUser(company.ID, req.Email, string(passwordHash), reqctx.RoleOwner)
	owner.FullName = req.FullName

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.companyRepo.Create(ctx, company); err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		if err := s.userRepo.Create(ctx, owner); err != nil {
			return fmt.Errorf("create owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Info(ctx, "company registered",
		"company_id", company.ID,
		"owner_id", owner.ID,
		"email", owner.Email)

	return company, owner, nil
}

// Login authenticates a user and returns tokens.
func (s *Service) Login(ctx context.Context, creds Credentials) (*TokenPair, *User, error) {
	user, err := s.userRepo.GetByEmail(ctx, creds.Email)
	if err != nil {
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}
	if err := user.CanLogin(); err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		user.RecordFailedLogin(s.config.MaxLoginAttempts, s.config.LockDuration)
		_ = s.userRepo.Update(ctx, user)
		return nil, nil, apperror.NewUnauthorized("invalid credentials")
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	user.RecordSuccessfulLogin()
	_ = s.userRepo.Update(ctx, user)

	logger.Info(ctx, "user logged in",
		"user_id", user.ID,
		"company_id", user.CompanyID,
		"email", user.Email)

	return tokens, user, nil
}

// RefreshToken refreshes access token using refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	tokenHash := hashToken(refreshToken)

	token, err := s.tokenRepo.GetRefreshToken(ctx, tokenHash)
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid refresh token")
	}
	if !token.IsValid() {
		return nil, apperror.NewUnauthorized("refresh token expired or revoked")
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, apperror.NewUnauthorized("user not found")
	}
	if err := user.CanLogin(); err != nil {
		return nil, err
	}

	// one-time use: rotate on every refresh
	_ = s.tokenRepo.RevokeRefreshToken(ctx, token.ID, "refreshed")

	return s.generateTokenPair(ctx, user)
}

// Logout revokes all user's refresh tokens.
func (s *Service) Logout(ctx context.Context, userID id.ID) error {
	return s.tokenRepo.RevokeAllUserTokens(ctx, userID, "logout")
}

// --- Settings ---

// GetProfile returns the caller's own account.
func (s *Service) GetProfile(ctx context.Context) (*User, error) {
	userID, err := currentUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewNotFound("user", userID.String())
	}
	return user, nil
}

// UpdateProfile updates the caller's own name or password.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error) {
	user, err := s.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Password != nil {
		if len(*req.Password) < s.config.PasswordMinLength {
			return nil, apperror.NewValidation(
				fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
			).WithDetail("field", "password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// GetCompany returns the caller's company.
func (s *Service) GetCompany(ctx context.Context) (*Company, error) {
	companyID, err := currentCompanyID(ctx)
	if err != nil {
		return nil, err
	}
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, apperror.NewNotFound("company", companyID.String())
	}
	return company, nil
}

// UpdateCompany updates company details. Owner only.
func (s *Service) UpdateCompany(ctx context.Context, req UpdateCompanyRequest) (*Company, error) {
	if !reqctx.IsOwner(ctx) {
		return nil, apperror.NewForbidden("only the owner can update company details")
	}

	company, err := s.GetCompany(ctx)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		company.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		company.Address = req.Address
	}
	if req.Phone != nil {
		company.Phone = req.Phone
	}
	if req.Email != nil {
		company.Email = req.Email
	}
	if err := company.Validate(ctx); err != nil {
		return nil, err
	}
	company.UpdatedAt = time.Now()

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.companyRepo.Update(ctx, company); err != nil {
			return fmt.Errorf("update company: %w", err)
		}
		return s.activity.Record(ctx, activity.EventCompanyUpdated, activity.RefCompany, company.ID, map[string]any{
			"name": company.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return company, nil
}

// ListUsers lists company members. Owner only.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	if !reqctx.IsOwner(ctx) {
		return nil, apperror.NewForbidden("only the owner can list users")
	}
	companyID, err := currentCompanyID(ctx)
	if err != nil {
		return nil, err
	}
	return s.userRepo.ListByCompany(ctx, companyID)
}

// InviteUser creates a new member in the caller's company. Owner only.
func (s *Service) InviteUser(ctx context.Context, req InviteRequest) (*User, error) {
	if !reqctx.IsOwner(ctx) {
		return nil, apperror.NewForbidden("only the owner can invite users")
	}
	companyID, err := currentCompanyID(ctx)
	if err != nil {
		return nil, err
	}

	if req.Email == "" {
		return nil, apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if len(req.Password) < s.config.PasswordMinLength {
		return nil, apperror.NewValidation(
			fmt.Sprintf("password must be at least %d characters", s.config.PasswordMinLength),
		).WithDetail("field", "password")
	}
	role := req.Role
	if role == "" {
		role = reqctx.RoleStaff
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email exists: %w", err)
	}
	if exists {
		return nil, apperror.NewConflict("email already registered").WithDetail("email", req.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := NewUser(companyID, req.Email, string(hash), role)
	user.FullName = req.FullName
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return s.activity.Record(ctx, activity.EventUserInvited, activity.RefUser, user.ID, map[string]any{
			"email": user.Email,
			"role":  user.Role,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "user invited",
		"user_id", user.ID,
		"company_id", companyID,
		"role", user.Role)

	return user, nil
}

// UpdateUser changes another member's role or active flag. Owner only.
// A company must keep at least one active owner.
func (s *Service) UpdateUser(ctx context.Context, userID id.ID, req UpdateUserRequest) (*User, error) {
	if !reqctx.IsOwner(ctx) {
		return nil, apperror.NewForbidden("only the owner can manage users")
	}
	companyID, err := currentCompanyID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || user.CompanyID != companyID {
		return nil, apperror.NewNotFound("user", userID.String())
	}

	demoting := user.IsOwner() &&
		((req.Role != nil && *req.Role != reqctx.RoleOwner) ||
			(req.IsActive != nil && !*req.IsActive))
	if demoting {
		owners, err := s.userRepo.CountOwners(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("count owners: %w", err)
		}
		if owners <= 1 {
			return nil, apperror.NewConflict("company must keep at least one active owner")
		}
	}

	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := user.Validate(ctx); err != nil {
		return nil, err
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	// a deactivated user must not keep live sessions
	if req.IsActive != nil && !*req.IsActive {
		_ = s.tokenRepo.RevokeAllUserTokens(ctx, user.ID, "deactivated")
	}

	return user, nil
}

// generateTokenPair creates access and refresh tokens.
func (s *Service) generateTokenPair(ctx context.Context, user *User) (*TokenPair, error) {
	accessToken, expiresAt, err := s.jwtService.GenerateAccessToken(
		user.ID.String(), user.CompanyID.String(), user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshTokenRaw, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	refreshToken := &RefreshToken{
		ID:        id.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: time.Now().Add(s.config.RefreshTokenExpiry),
		CreatedAt: time.Now(),
	}
	if err := s.tokenRepo.SaveRefreshToken(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresAt:    expiresAt,
		TokenType:    "Bearer",
	}, nil
}

func currentUserID(ctx context.Context) (id.ID, error) {
	userID, err := id.Parse(reqctx.GetUserID(ctx))
	if err != nil {
		return id.ID{}, apperror.NewUnauthorized("authentication required")
	}
	return userID, nil
}

func currentCompanyID(ctx context.Context) (id.ID, error) {
	companyID, err := id.Parse(reqctx.GetCompanyID(ctx))
	if err != nil {
		return id.ID{}, apperror.NewUnauthorized("authentication required")
	}
	return companyID, nil
}

// hashToken creates SHA256 hash of token.
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generateRandomToken generates a random token string.
func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
