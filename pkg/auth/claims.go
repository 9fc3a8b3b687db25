package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
)

// Identity is the authenticated caller as asserted by the identity provider.
type Identity struct {
	Email string
	Role  models.UserRole
}

// AccessTokenClaims represents the typed JWT presented by clients.
type AccessTokenClaims struct {
	Email string          `json:"email"`
	Role  models.UserRole `json:"role"`
	jwt.RegisteredClaims
}
