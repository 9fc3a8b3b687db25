package middleware

import (
	"net/http"
	"strings"

	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	pkgAuth "github.com/sumon-ahmed84/book-courier-server11/pkg/auth"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// caller's identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			identity, err := pkgAuth.Authorize(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), identity)
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"identity":   identity.Email,
					"actor_role": string(identity.Role),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
