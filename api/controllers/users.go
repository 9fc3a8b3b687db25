package controllers

import (
	"net/http"

	"github.com/sumon-ahmed84/book-courier-server11/api/middleware"
	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/sellerrequests"
	"github.com/sumon-ahmed84/book-courier-server11/internal/users"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

type upsertUserPayload struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

// UserUpsert records a sign-in from the identity provider.
func UserUpsert(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload upsertUserPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.UpsertIdentity(ctx, payload.Email, payload.Name)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

// UserRole answers the calling identity's role.
func UserRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		role, err := svc.Role(ctx, identity.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"role": role})
	}
}

// SellerRequestCreate files a promotion request for the calling identity.
func SellerRequestCreate(svc sellerrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		request, err := svc.Submit(ctx, identity.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}
