package controllers

import (
	"net/http"

	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/sellerrequests"
	"github.com/sumon-ahmed84/book-courier-server11/internal/users"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

type changeRolePayload struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=customer seller admin"`
}

// AdminUsersList returns every known identity.
func AdminUsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		found, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"users": found})
	}
}

// AdminSellerRequestsList returns the pending promotion queue, oldest first.
func AdminSellerRequestsList(svc sellerrequests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		found, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"seller_requests": found})
	}
}

// AdminChangeRole updates a user's role and consumes any pending seller
// request in the same transaction.
func AdminChangeRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload changeRolePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.ChangeRole(ctx, payload.Email, models.UserRole(payload.Role))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
