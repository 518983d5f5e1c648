package auth

import (
	"context"

	"powderbook/internal/core/id"
)

// UserRepository defines user storage operations.
// Emails are unique across all companies: login carries no company hint.
type UserRepository interface {
	// Create creates a new user.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves user by ID.
	GetByID(ctx context.Context, userID id.ID) (*User, error)

	// GetByEmail retrieves user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user data.
	Update(ctx context.Context, user *User) error

	// ListByCompany retrieves all members of a company.
	ListByCompany(ctx context.Context, companyID id.ID) ([]User, error)

	// ExistsByEmail checks if email is taken.
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// CountOwners returns the number of active owners in a company.
	CountOwners(ctx context.Context, companyID id.ID) (int, error)
}

// CompanyRepository defines company storage operations.
type CompanyRepository interface {
	// Create creates a new company.
	Create(ctx context.Context, company *Company) error

	// GetByID retrieves company by ID.
	GetByID(ctx context.Context, companyID id.ID) (*Company, error)

	// Update updates company details.
	Update(ctx context.Context, company *Company) error
}

// TokenRepository defines token storage operations.
type TokenRepository interface {
	// SaveRefreshToken saves a refresh token.
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken retrieves refresh token by hash.
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)

	// RevokeRefreshToken revokes a refresh token.
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error

	// RevokeAllUserTokens revokes all tokens for a user.
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error

	// CleanupExpiredTokens removes expired tokens.
	CleanupExpiredTokens(ctx context.Context) (int, error)
}
