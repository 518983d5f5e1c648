// Package reqctx provides request-scoped values extraction.
package reqctx

import (
	"context"
)

// Roles within a company. Owners manage the company, its members and
// settings; staff record stock and usage.
const (
	RoleOwner = "owner"
	RoleStaff = "staff"
)

// UserContext contains authenticated user information.
// CompanyID scopes every query the request performs.
type UserContext struct {
	UserID    string
	CompanyID string
	Email     string
	Role      string
	SessionID string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetCompanyID returns company ID from context or empty string.
func GetCompanyID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.CompanyID
	}
	return ""
}

// IsOwner reports whether the authenticated user owns the company.
func IsOwner(ctx context.Context) bool {
	if u := GetUser(ctx); u != nil {
		return u.Role == RoleOwner
	}
	return false
}
