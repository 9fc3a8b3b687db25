package reconcile

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumon-ahmed84/book-courier-server11/internal/catalog"
	"github.com/sumon-ahmed84/book-courier-server11/internal/orders"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/metrics"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/payments"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/redis"
	"gorm.io/gorm"
)

// passthroughTx runs the function directly. The in-memory fakes below are
// internally synchronized, so engine properties that do not depend on
// rollback semantics can be exercised under real goroutine concurrency.
type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type memOrders struct {
	mu    sync.Mutex
	byRef map[string]*models.Order
}

func newMemOrders() *memOrders {
	return &memOrders{byRef: map[string]*models.Order{}}
}

func (m *memOrders) WithTx(*gorm.DB) orders.Repository { return m }

func (m *memOrders) InsertIfAbsent(_ context.Context, order *models.Order) (bool, *models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if winner, ok := m.byRef[order.TransactionRef]; ok {
		return false, winner, nil
	}
	order.ID = uuid.New()
	stored := *order
	m.byRef[order.TransactionRef] = &stored
	return true, &stored, nil
}

func (m *memOrders) FindByTransactionRef(_ context.Context, ref string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order, ok := m.byRef[ref]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrders) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.byRef {
		if order.ID == id {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memOrders) FindByBuyer(context.Context, string) ([]models.Order, error)  { return nil, nil }
func (m *memOrders) FindBySeller(context.Context, string) ([]models.Order, error) { return nil, nil }

func (m *memOrders) UpdateStatus(_ context.Context, id uuid.UUID, status models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, order := range m.byRef {
		if order.ID == id {
			order.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memOrders) Delete(context.Context, uuid.UUID) error { return gorm.ErrRecordNotFound }

func (m *memOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRef)
}

type memCatalog struct {
	mu    sync.Mutex
	books map[uuid.UUID]*models.Book
}

func newMemCatalog(books ...*models.Book) *memCatalog {
	m := &memCatalog{books: map[uuid.UUID]*models.Book{}}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *memCatalog) WithTx(*gorm.DB) catalog.Repository { return m }

func (m *memCatalog) Create(_ context.Context, book *models.Book) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.books[book.ID] = book
	return book, nil
}

func (m *memCatalog) FindByID(_ context.Context, id uuid.UUID) (*models.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if book, ok := m.books[id]; ok {
		copied := *book
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCatalog) List(context.Context, int) ([]models.Book, error)           { return nil, nil }
func (m *memCatalog) Latest(context.Context, int) ([]models.Book, error)         { return nil, nil }
func (m *memCatalog) Search(context.Context, string, int) ([]models.Book, error) { return nil, nil }
func (m *memCatalog) FindBySeller(context.Context, string) ([]models.Book, error) {
	return nil, nil
}

func (m *memCatalog) DecrementStock(_ context.Context, id uuid.UUID, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	book, ok := m.books[id]
	if !ok || quantity <= 0 || book.Stock < quantity {
		return false, nil
	}
	book.Stock -= quantity
	return true, nil
}

func (m *memCatalog) stock(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.books[id].Stock
}

type memGuard struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemGuard() *memGuard { return &memGuard{values: map[string]string{}} }

func (g *memGuard) Get(_ context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if v, ok := g.values[key]; ok {
		return v, nil
	}
	return "", fmt.Errorf("key not found")
}

func (g *memGuard) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.values[key]; ok {
		return false, nil
	}
	g.values[key] = fmt.Sprint(value)
	return true, nil
}

func (g *memGuard) IdempotencyKey(scope, id string) string {
	return "bc:idempotency:" + scope + ":" + id
}

func (g *memGuard) Del(_ context.Context, keys ...string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, k := range keys {
		delete(g.values, k)
	}
	return nil
}

type sessionProvider struct {
	sessions map[string]*payments.Session
	fetches  atomic.Int64
}

func (p *sessionProvider) CreateSession(context.Context, payments.CreateSessionInput) (*payments.Session, error) {
	return nil, fmt.Errorf("not used")
}

func (p *sessionProvider) FetchSession(_ context.Context, sessionID string) (*payments.Session, error) {
	p.fetches.Add(1)
	if session, ok := p.sessions[sessionID]; ok {
		return session, nil
	}
	return nil, errors.New(errors.CodeNotFound, "no such session")
}

func completeSession(id, ref string, bookID uuid.UUID, quantity, amountCents int) *payments.Session {
	return &payments.Session{
		ID:             id,
		Status:         payments.SessionStatusComplete,
		TransactionRef: ref,
		AmountCents:    amountCents,
		Currency:       "usd",
		BuyerEmail:     "buyer@example.com",
		Metadata: map[string]string{
			payments.MetadataBookID:     bookID.String(),
			payments.MetadataBuyerEmail: "buyer@example.com",
			"quantity":                  fmt.Sprint(quantity),
		},
	}
}

func testBook(stock int) *models.Book {
	return &models.Book{
		ID:          uuid.New(),
		Title:       "Structure and Interpretation",
		Category:    "programming",
		PriceCents:  2500,
		Stock:       stock,
		SellerEmail: "seller@example.com",
	}
}

func newTestEngine(provider payments.Provider, ordersRepo orders.Repository, catalogRepo catalog.Repository, guard redis.IdempotencyStore) *Engine {
	return NewEngine(
		passthroughTx{},
		provider,
		ordersRepo,
		catalogRepo,
		guard,
		time.Hour,
		metrics.NewReconcileMetrics(prometheus.NewRegistry()),
		logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	)
}

func TestReconcileCreatesOrderAndDecrements(t *testing.T) {
	t.Parallel()

	book := testBook(3)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_1": completeSession("cs_1", "txn_1", book.ID, 2, 5000),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)

	result, err := engine.Reconcile(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, "txn_1", result.TransactionRef)
	assert.Equal(t, models.OrderStatusPending, result.Status)
	assert.Equal(t, 1, catalogRepo.stock(book.ID))

	order, err := ordersRepo.FindByTransactionRef(context.Background(), "txn_1")
	require.NoError(t, err)
	assert.Equal(t, 2, order.Quantity)
	assert.Equal(t, 2500, order.UnitPriceCents, "captured amount split across quantity")
	assert.Equal(t, "buyer@example.com", order.BuyerEmail)
	assert.Equal(t, "seller@example.com", order.SellerEmail)
}

func TestReconcileSequentialIdempotence(t *testing.T) {
	t.Parallel()

	book := testBook(5)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_2": completeSession("cs_2", "txn_2", book.ID, 1, 2500),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)
	ctx := context.Background()

	first, err := engine.Reconcile(ctx, "cs_2")
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := engine.Reconcile(ctx, "cs_2")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Equal(t, first.TransactionRef, second.TransactionRef)

	assert.Equal(t, 4, catalogRepo.stock(book.ID), "stock decremented exactly once")
	assert.Equal(t, 1, ordersRepo.count())
}

func TestReconcileGuardShortCircuitsProvider(t *testing.T) {
	t.Parallel()

	book := testBook(5)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_3": completeSession("cs_3", "txn_3", book.ID, 1, 2500),
	}}
	guard := newMemGuard()
	engine := newTestEngine(provider, ordersRepo, catalogRepo, guard)
	ctx := context.Background()

	_, err := engine.Reconcile(ctx, "cs_3")
	require.NoError(t, err)
	assert.EqualValues(t, 1, provider.fetches.Load())

	result, err := engine.Reconcile(ctx, "cs_3")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.EqualValues(t, 1, provider.fetches.Load(), "guard hit skips the provider")
}

func TestReconcileGuardWithoutOrderFallsThrough(t *testing.T) {
	t.Parallel()

	book := testBook(5)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_stale": completeSession("cs_stale", "txn_stale", book.ID, 1, 2500),
	}}
	guard := newMemGuard()
	ctx := context.Background()
	// Stale guard entry with no backing order row: database stays authoritative.
	_, err := guard.SetNX(ctx, guard.IdempotencyKey(guardScope, "cs_stale"), "txn_stale", time.Hour)
	require.NoError(t, err)

	engine := newTestEngine(provider, ordersRepo, catalogRepo, guard)
	result, err := engine.Reconcile(ctx, "cs_stale")
	require.NoError(t, err)
	assert.True(t, result.Created)
}

func TestReconcileConcurrentSameSession(t *testing.T) {
	t.Parallel()

	book := testBook(10)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_race": completeSession("cs_race", "txn_race", book.ID, 1, 2500),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)

	const callers = 16
	var wg sync.WaitGroup
	var createdCount atomic.Int64
	results := make([]*Result, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = engine.Reconcile(context.Background(), "cs_race")
			if errs[i] == nil && results[i].Created {
				createdCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.EqualValues(t, 1, createdCount.Load(), "exactly one caller creates the order")
	assert.Equal(t, 1, ordersRepo.count())
	assert.Equal(t, 9, catalogRepo.stock(book.ID), "stock decremented exactly once")

	first := results[0]
	for _, r := range results[1:] {
		assert.Equal(t, first.OrderID, r.OrderID)
	}
}

func TestReconcileNoOversellAcrossTransactions(t *testing.T) {
	t.Parallel()

	book := testBook(1)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_a": completeSession("cs_a", "txn_a", book.ID, 1, 2500),
		"cs_b": completeSession("cs_b", "txn_b", book.ID, 1, 2500),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)
	ctx := context.Background()

	first, err := engine.Reconcile(ctx, "cs_a")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, models.OrderStatusPending, first.Status)

	// second captured payment for the last copy: order still materializes,
	// stock never goes negative
	second, err := engine.Reconcile(ctx, "cs_b")
	require.NoError(t, err)
	assert.True(t, second.Created)
	assert.Equal(t, models.OrderStatusBackorder, second.Status)

	assert.Equal(t, 0, catalogRepo.stock(book.ID))
	assert.Equal(t, 2, ordersRepo.count())
}

func TestReconcileIncompleteSession(t *testing.T) {
	t.Parallel()

	book := testBook(5)
	catalogRepo := newMemCatalog(book)
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_pending": {
			ID:     "cs_pending",
			Status: payments.SessionStatusPending,
			Metadata: map[string]string{
				payments.MetadataBookID: book.ID.String(),
			},
		},
		"cs_failed": {
			ID:     "cs_failed",
			Status: payments.SessionStatusFailed,
			Metadata: map[string]string{
				payments.MetadataBookID: book.ID.String(),
			},
		},
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)
	ctx := context.Background()

	for _, sessionID := range []string{"cs_pending", "cs_failed"} {
		_, err := engine.Reconcile(ctx, sessionID)
		require.Error(t, err)
		assert.Equal(t, errors.CodePaymentIncomplete, errors.As(err).Code(), sessionID)
	}

	assert.Equal(t, 0, ordersRepo.count(), "no order for an uncaptured payment")
	assert.Equal(t, 5, catalogRepo.stock(book.ID), "stock untouched")
}

func TestReconcileBookGone(t *testing.T) {
	t.Parallel()

	catalogRepo := newMemCatalog()
	ordersRepo := newMemOrders()
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_gone": completeSession("cs_gone", "txn_gone", uuid.New(), 1, 2500),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)

	_, err := engine.Reconcile(context.Background(), "cs_gone")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.As(err).Code())
	assert.Equal(t, 0, ordersRepo.count())
}

func TestReconcileRejectsUnusableSession(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(&sessionProvider{sessions: map[string]*payments.Session{
		"cs_bad": {
			ID:       "cs_bad",
			Status:   payments.SessionStatusComplete,
			Metadata: map[string]string{payments.MetadataBookID: "not-a-uuid"},
		},
	}}, newMemOrders(), newMemCatalog(), nil)

	_, err := engine.Reconcile(context.Background(), "cs_bad")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())

	_, err = engine.Reconcile(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidation, errors.As(err).Code())
}

func TestReconcileLostInsertRaceResolvesWinner(t *testing.T) {
	t.Parallel()

	book := testBook(5)
	catalogRepo := newMemCatalog(book)
	winner := &models.Order{
		ID:             uuid.New(),
		BookID:         book.ID,
		TransactionRef: "txn_lost",
		Status:         models.OrderStatusPending,
	}
	ordersRepo := &racingOrders{memOrders: newMemOrders(), winner: winner}
	provider := &sessionProvider{sessions: map[string]*payments.Session{
		"cs_lost": completeSession("cs_lost", "txn_lost", book.ID, 1, 2500),
	}}
	engine := newTestEngine(provider, ordersRepo, catalogRepo, nil)

	result, err := engine.Reconcile(context.Background(), "cs_lost")
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, winner.ID, result.OrderID)
	assert.Equal(t, 5, catalogRepo.stock(book.ID), "loser must not decrement")
}

// racingOrders simulates a Postgres transaction losing the insert race: the
// insert reports a unique violation and only reads outside the transaction
// can see the winner.
type racingOrders struct {
	*memOrders
	winner   *models.Order
	resolved atomic.Bool
}

func (r *racingOrders) WithTx(*gorm.DB) orders.Repository { return r }

func (r *racingOrders) InsertIfAbsent(context.Context, *models.Order) (bool, *models.Order, error) {
	return false, nil, fmt.Errorf(`duplicate key value violates unique constraint %q`, orders.ConstraintTransactionRef)
}

func (r *racingOrders) FindByTransactionRef(_ context.Context, ref string) (*models.Order, error) {
	if ref == r.winner.TransactionRef && r.resolved.Swap(true) {
		return r.winner, nil
	}
	return nil, gorm.ErrRecordNotFound
}
