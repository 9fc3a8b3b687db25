package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintAccessToken issues a signed JWT for the provided identity. The API
// never mints tokens in production; this mirrors the identity provider for
// tests and local tooling.
func MintAccessToken(cfg config.JWTConfig, now time.Time, identity Identity, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("jwt issuer is required")
	}
	if identity.Email == "" {
		return "", fmt.Errorf("identity email is required")
	}
	if !identity.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", identity.Role)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	claims := AccessTokenClaims{
		Email: identity.Email,
		Role:  identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken validates the JWT string and returns typed claims.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	claims := &AccessTokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

// Authorize turns a raw bearer token into an Identity or an unauthorized error.
func Authorize(cfg config.JWTConfig, token string) (Identity, error) {
	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		return Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.Email == "" {
		return Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "token missing identity")
	}
	role := claims.Role
	if !role.IsValid() {
		role = models.RoleCustomer
	}
	return Identity{Email: claims.Email, Role: role}, nil
}

// RequireRole rejects identities that do not carry the expected role. The
// caller's actual role is disclosed in the details for client-side UX.
func RequireRole(identity Identity, role models.UserRole) error {
	if identity.Role == role {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s role required", role)).
		WithDetails(map[string]any{"role": string(identity.Role)})
}
