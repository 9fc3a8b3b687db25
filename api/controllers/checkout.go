package controllers

import (
	"net/http"

	"github.com/sumon-ahmed84/book-courier-server11/api/middleware"
	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/checkout"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

// CheckoutCreate starts a hosted checkout session and returns the URL the
// buyer should be redirected to.
func CheckoutCreate(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var input checkout.Input
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.InitiateSession(ctx, identity.Email, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"session_id":   session.SessionID,
			"redirect_url": session.RedirectURL,
		})
	}
}
