package checkout

import (
	"context"
	stderrors "errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/payments"
	"gorm.io/gorm"
)

// BookLookup is the slice of the catalog this package needs.
type BookLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
}

// Input is a buyer's intent to purchase, before any money moves.
type Input struct {
	BookID   uuid.UUID `json:"book_id" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gt=0"`
}

// Session is the controller-facing result of initiating a checkout.
type Session struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// Service initiates hosted checkout sessions. Pricing always comes from the
// catalog row, never from the request; the client only names a book and a
// quantity.
type Service interface {
	InitiateSession(ctx context.Context, buyerEmail string, input Input) (*Session, error)
}

type service struct {
	books    BookLookup
	provider payments.Provider
	cfg      config.PaymentsConfig
	log      *logger.Logger
}

func NewService(books BookLookup, provider payments.Provider, cfg config.PaymentsConfig, log *logger.Logger) Service {
	return &service{books: books, provider: provider, cfg: cfg, log: log}
}

func (s *service) InitiateSession(ctx context.Context, buyerEmail string, input Input) (*Session, error) {
	if input.Quantity <= 0 {
		return nil, errors.New(errors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": input.Quantity})
	}
	if input.BookID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "book_id is required")
	}

	book, err := s.books.FindByID(ctx, input.BookID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.CodeNotFound, "book not found")
		}
		return nil, errors.Wrap(errors.CodeInternal, err, "loading book for checkout")
	}
	if book.PriceCents <= 0 {
		return nil, errors.New(errors.CodeValidation, "book is not priced for sale")
	}

	// Stock is deliberately not checked here. The conditional decrement at
	// reconciliation time is the only authority on availability; refusing a
	// session now would still race with every other open checkout.
	session, err := s.provider.CreateSession(ctx, payments.CreateSessionInput{
		AmountCents: book.PriceCents,
		Quantity:    input.Quantity,
		Currency:    s.cfg.Currency,
		BuyerEmail:  buyerEmail,
		Name:        book.Title,
		Description: book.Category,
		ImageURL:    book.ImageURL,
		SuccessURL:  s.cfg.SuccessURL,
		CancelURL:   s.cfg.CancelURL,
		Metadata: map[string]string{
			payments.MetadataBookID:     book.ID.String(),
			payments.MetadataBuyerEmail: buyerEmail,
			"quantity":                  strconv.Itoa(input.Quantity),
		},
	})
	if err != nil {
		return nil, err
	}

	ctx = s.log.WithFields(ctx, map[string]any{
		"session_id": session.ID,
		"book_id":    book.ID.String(),
		"quantity":   input.Quantity,
	})
	s.log.Info(ctx, "checkout session created")
	return &Session{SessionID: session.ID, RedirectURL: session.RedirectURL}, nil
}
