package middleware

import (
	"context"

	"github.com/sumon-ahmed84/book-courier-server11/pkg/auth"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
)

type contextKey string

const ctxIdentity contextKey = "identity"

// IdentityFromContext returns the authenticated caller, if any.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	if ctx == nil {
		return auth.Identity{}, false
	}
	if v, ok := ctx.Value(ctxIdentity).(auth.Identity); ok && v.Email != "" {
		return v, true
	}
	return auth.Identity{}, false
}

// RoleFromContext returns the caller role or empty when unauthenticated.
func RoleFromContext(ctx context.Context) models.UserRole {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.Role
}

// WithIdentity injects the caller identity into the context. Used by handlers
// under test and by the auth middleware.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}
