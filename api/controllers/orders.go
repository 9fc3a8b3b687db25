package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/api/middleware"
	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/orders"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending backorder shipped delivered"`
}

// OrdersMine lists the calling buyer's orders, newest first.
func OrdersMine(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		found, err := svc.MyOrders(ctx, identity.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": found})
	}
}

// OrdersBySeller lists orders landing on the calling seller.
func OrdersBySeller(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		found, err := svc.SellerOrders(ctx, identity.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": found})
	}
}

// OrderUpdateStatus moves an order through fulfillment.
func OrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var payload updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.UpdateStatus(ctx, identity, id, models.OrderStatus(payload.Status))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderDelete removes an order record.
func OrderDelete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		id, err := uuid.Parse(chi.URLParam(r, "orderId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}
		if err := svc.Delete(ctx, identity, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}
