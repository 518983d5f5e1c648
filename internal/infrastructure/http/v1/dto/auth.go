package dto

import (
	"time"

	"powderbook/internal/domain/auth"
)

// --- Request DTOs ---

// RegisterRequest creates a company with its first owner account.
type RegisterRequest struct {
	CompanyName string `json:"companyName" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	FullName    string `json:"fullName,omitempty"`
}

// ToAuthRequest converts to domain request.
func (r *RegisterRequest) ToAuthRequest() auth.RegisterRequest {
	return auth.RegisterRequest{
		CompanyName: r.CompanyName,
		Email:       r.Email,
		Password:    r.Password,
		FullName:    r.FullName,
	}
}

// LoginRequest for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ToCredentials converts to domain credentials.
func (r *LoginRequest) ToCredentials() auth.Credentials {
	return auth.Credentials{
		Email:    r.Email,
		Password: r.Password,
	}
}

// RefreshTokenRequest for token refresh.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UpdateProfileRequest changes the caller's own account.
type UpdateProfileRequest struct {
	FullName *string `json:"fullName"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

// ToAuthRequest converts to domain request.
func (r *UpdateProfileRequest) ToAuthRequest() auth.UpdateProfileRequest {
	return auth.UpdateProfileRequest{
		FullName: r.FullName,
		Password: r.Password,
	}
}

// InviteUserRequest adds a member to the caller's company (owner only).
type InviteUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"fullName,omitempty"`
	Role     string `json:"role" binding:"omitempty,oneof=owner staff"`
}

// ToAuthRequest converts to domain request.
func (r *InviteUserRequest) ToAuthRequest() auth.InviteRequest {
	return auth.InviteRequest{
		Email:    r.Email,
		Password: r.Password,
		FullName: r.FullName,
		Role:     r.Role,
	}
}

// UpdateUserRequest changes a member's role or active flag (owner only).
type UpdateUserRequest struct {
	Role     *string `json:"role" binding:"omitempty,oneof=owner staff"`
	IsActive *bool   `json:"isActive"`
}

// ToAuthRequest converts to domain request.
func (r *UpdateUserRequest) ToAuthRequest() auth.UpdateUserRequest {
	return auth.UpdateUserRequest{
		Role:     r.Role,
		IsActive: r.IsActive,
	}
}

// UpdateCompanyRequest changes company details (owner only).
type UpdateCompanyRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" binding:"omitempty,email"`
}

// ToAuthRequest converts to domain request.
func (r *UpdateCompanyRequest) ToAuthRequest() auth.UpdateCompanyRequest {
	return auth.UpdateCompanyRequest{
		Name:    r.Name,
		Address: r.Address,
		Phone:   r.Phone,
		Email:   r.Email,
	}
}

// --- Response DTOs ---

// TokenResponse represents token pair response.
type TokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

// FromTokenPair creates response from domain token pair.
func FromTokenPair(tp *auth.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  tp.AccessToken,
		RefreshToken: tp.RefreshToken,
		ExpiresAt:    tp.ExpiresAt,
		TokenType:    tp.TokenType,
	}
}

// UserResponse represents user in API response.
type UserResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FromUser creates response from domain user.
func FromUser(u *auth.User) *UserResponse {
	return &UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// LoginResponse bundles tokens with the authenticated user.
type LoginResponse struct {
	Tokens *TokenResponse `json:"tokens"`
	User   *UserResponse  `json:"user"`
}

// CompanyResponse represents company in API response.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   *string   `json:"address,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromCompany creates response from domain company.
func FromCompany(c *auth.Company) *CompanyResponse {
	return &CompanyResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Address:   c.Address,
		Phone:     c.Phone,
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

// RegisterResponse is returned after successful registration.
type RegisterResponse struct {
	Company *CompanyResponse `json:"company"`
	User    *UserResponse    `json:"user"`
}
