// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"powderbook/internal/core/apperror"
	"powderbook/internal/core/id"
	"powderbook/internal/core/reqctx"
	"powderbook/internal/domain/auth"
	"powderbook/internal/infrastructure/http/v1/dto"
	"powderbook/internal/infrastructure/http/v1/middleware"
)

// AuthHandler handles authentication, profile and company settings
// endpoints.
type AuthHandler struct {
	*BaseHandler
	service *auth.Service
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(base *BaseHandler, service *auth.Service) *AuthHandler {
	return &AuthHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Register handles POST /auth/register - create a company with its owner.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RegisterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	company, user, err := h.service.Register(ctx, req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.RegisterResponse{
		Company: dto.FromCompany(company),
		User:    dto.FromUser(user),
	})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, user, err := h.service.Login(ctx, req.ToCredentials())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Tokens: dto.FromTokenPair(tokens),
		User:   dto.FromUser(user),
	})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	tokens, err := h.service.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTokenPair(tokens))
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := c.Request.Context()

	userID, err := id.Parse(reqctx.GetUserID(ctx))
	if err != nil {
		h.Error(c, apperror.NewUnauthorized("not authenticated"))
		return
	}

	if err := h.service.Logout(ctx, userID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromUser(user))
}

// UpdateProfile handles PUT /auth/me
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromUser(user))
}

// GetCompany handles GET /settings/company
func (h *AuthHandler) GetCompany(c *gin.Context) {
	company, err := h.service.GetCompany(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromCompany(company))
}

// UpdateCompany handles PUT /settings/company (owner only)
func (h *AuthHandler) UpdateCompany(c *gin.Context) {
	var req dto.UpdateCompanyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	company, err := h.service.UpdateCompany(c.Request.Context(), req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCompany(company))
}

// ListUsers handles GET /settings/users
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	response := make([]*dto.UserResponse, len(users))
	for i := range users {
		response[i] = dto.FromUser(&users[i])
	}

	c.JSON(http.StatusOK, gin.H{"items": response})
}

// InviteUser handles POST /settings/users (owner only)
func (h *AuthHandler) InviteUser(c *gin.Context) {
	var req dto.InviteUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.InviteUser(c.Request.Context(), req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.CompleteIdempotency(c, http.StatusCreated, "application/json", dto.FromUser(user))
	c.JSON(http.StatusCreated, dto.FromUser(user))
}

// UpdateUser handles PUT /settings/users/:id (owner only)
func (h *AuthHandler) UpdateUser(c *gin.Context) {
	userID, ok := h.PathID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateUserRequest
	if !h.BindJSON(c, &req) {
		return
	}

	user, err := h.service.UpdateUser(c.Request.Context(), userID, req.ToAuthRequest())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromUser(user))
}

// RegisterRoutes registers auth routes.
func (h *AuthHandler) RegisterRoutes(public, protected *gin.RouterGroup) {
	// Public routes (no auth required)
	public.POST("/register", h.Register)
	public.POST("/login", h.Login)
	public.POST("/refresh", h.Refresh)

	// Protected routes (auth required)
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.Me)
	protected.PUT("/me", h.UpdateProfile)
}

// RegisterSettingsRoutes registers company settings routes.
// Company and member management are owner-only.
func (h *AuthHandler) RegisterSettingsRoutes(rg *gin.RouterGroup) {
	rg.GET("/company", h.GetCompany)
	rg.PUT("/company", middleware.RequireOwner(), h.UpdateCompany)
	rg.GET("/users", h.ListUsers)
	rg.POST("/users", middleware.RequireOwner(), h.InviteUser)
	rg.PUT("/users/:id", middleware.RequireOwner(), h.UpdateUser)
}
