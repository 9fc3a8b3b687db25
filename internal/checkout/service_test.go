package checkout

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/config"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/payments"
	"gorm.io/gorm"
)

type fakeBookLookup struct {
	books map[uuid.UUID]*models.Book
}

func (f *fakeBookLookup) FindByID(_ context.Context, id uuid.UUID) (*models.Book, error) {
	book, ok := f.books[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return book, nil
}

type fakeProvider struct {
	created payments.CreateSessionInput
	session *payments.Session
	err     error
}

func (f *fakeProvider) CreateSession(_ context.Context, input payments.CreateSessionInput) (*payments.Session, error) {
	f.created = input
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func (f *fakeProvider) FetchSession(context.Context, string) (*payments.Session, error) {
	return nil, nil
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testCheckoutConfig() config.PaymentsConfig {
	return config.PaymentsConfig{
		Currency:   "usd",
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
	}
}

func TestInitiateSessionBuildsProviderInput(t *testing.T) {
	t.Parallel()

	bookID := uuid.New()
	books := &fakeBookLookup{books: map[uuid.UUID]*models.Book{
		bookID: {
			ID:          bookID,
			Title:       "Designing Data-Intensive Applications",
			Category:    "distributed-systems",
			PriceCents:  4599,
			Stock:       2,
			SellerEmail: "seller@example.com",
		},
	}}
	provider := &fakeProvider{session: &payments.Session{
		ID:          "cs_test_123",
		Status:      payments.SessionStatusPending,
		RedirectURL: "https://pay.example.com/cs_test_123",
	}}

	svc := NewService(books, provider, testCheckoutConfig(), quietLogger())

	session, err := svc.InitiateSession(context.Background(), "buyer@example.com", Input{
		BookID:   bookID,
		Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_123", session.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_test_123", session.RedirectURL)

	assert.Equal(t, 4599, provider.created.AmountCents, "price must come from the catalog row")
	assert.Equal(t, 2, provider.created.Quantity)
	assert.Equal(t, "usd", provider.created.Currency)
	assert.Equal(t, "buyer@example.com", provider.created.BuyerEmail)
	assert.Equal(t, bookID.String(), provider.created.Metadata[payments.MetadataBookID])
	assert.Equal(t, "buyer@example.com", provider.created.Metadata[payments.MetadataBuyerEmail])
	assert.Equal(t, "2", provider.created.Metadata["quantity"])
}

func TestInitiateSessionValidation(t *testing.T) {
	t.Parallel()

	bookID := uuid.New()
	books := &fakeBookLookup{books: map[uuid.UUID]*models.Book{
		bookID: {ID: bookID, Title: "Free Book", PriceCents: 0},
	}}
	svc := NewService(books, &fakeProvider{}, testCheckoutConfig(), quietLogger())
	ctx := context.Background()

	_, err := svc.InitiateSession(ctx, "buyer@example.com", Input{BookID: bookID, Quantity: 0})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	_, err = svc.InitiateSession(ctx, "buyer@example.com", Input{Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	_, err = svc.InitiateSession(ctx, "buyer@example.com", Input{BookID: uuid.New(), Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())

	// unpriced book cannot be sold
	_, err = svc.InitiateSession(ctx, "buyer@example.com", Input{BookID: bookID, Quantity: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestInitiateSessionProviderFailurePassesThrough(t *testing.T) {
	t.Parallel()

	bookID := uuid.New()
	books := &fakeBookLookup{books: map[uuid.UUID]*models.Book{
		bookID: {ID: bookID, Title: "Some Book", PriceCents: 999},
	}}
	provider := &fakeProvider{err: errors.New(errors.CodeDependency, "provider unreachable")}
	svc := NewService(books, provider, testCheckoutConfig(), quietLogger())

	_, err := svc.InitiateSession(context.Background(), "buyer@example.com", Input{
		BookID:   bookID,
		Quantity: 1,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDependency, errors.As(err).Code())
}
