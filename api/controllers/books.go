package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/api/middleware"
	"github.com/sumon-ahmed84/book-courier-server11/api/responses"
	"github.com/sumon-ahmed84/book-courier-server11/api/validators"
	"github.com/sumon-ahmed84/book-courier-server11/internal/catalog"
	pkgerrors "github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
)

type createBookPayload struct {
	Title      string `json:"title" validate:"required"`
	Category   string `json:"category" validate:"required"`
	PriceCents int    `json:"price_cents" validate:"required,gt=0"`
	Stock      int    `json:"stock" validate:"min=0"`
	ImageURL   string `json:"image_url"`
}

// BooksList returns the public catalog.
func BooksList(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		books, err := svc.List(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"books": books})
	}
}

// BooksLatest returns the most recently listed books.
func BooksLatest(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		books, err := svc.Latest(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"books": books})
	}
}

// BooksSearch matches a substring against title and category.
func BooksSearch(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := strings.TrimSpace(r.URL.Query().Get("q"))
		books, err := svc.Search(ctx, query)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"books": books})
	}
}

func BookGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id, err := uuid.Parse(chi.URLParam(r, "bookId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid book id"))
			return
		}
		book, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, book)
	}
}

// BookCreate lists a new book under the calling seller.
func BookCreate(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}

		var payload createBookPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		book, err := svc.Create(ctx, identity.Email, catalog.CreateInput{
			Title:      payload.Title,
			Category:   payload.Category,
			PriceCents: payload.PriceCents,
			Stock:      payload.Stock,
			ImageURL:   payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, book)
	}
}

// SellerInventory returns the calling seller's own listings.
func SellerInventory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity, ok := middleware.IdentityFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing identity"))
			return
		}
		books, err := svc.SellerInventory(ctx, identity.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"books": books})
	}
}
