package controllers

import (
	"context"
	"net/http"

	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/reconcile"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

type reconcilePayload struct {
	SessionID string `json:"session_id" validate:"required"`
}

// Reconciler settles payment sessions into orders.
type Reconciler interface {
	Reconcile(ctx context.Context, sessionID string) (*reconcile.Result, error)
}

// ReconcilePayment settles a checkout session into its order. Retrying the
// same session returns the same order with "created": false.
func ReconcilePayment(engine Reconciler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload reconcilePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := engine.Reconcile(ctx, payload.SessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, result)
	}
}
