package reconcile

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/internal/catalog"
	"github.com/sumon-ahmed84/book-courier-server11/internal/orders"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/errors"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/logger"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/metrics"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/payments"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/redis"
	"gorm.io/gorm"
)

// Outcome labels for logs and metrics.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeBackorder = "backorder"
	OutcomeFailed    = "failed"
)

const guardScope = "reconcile"

// Result is what a reconciliation call settles on. Created is false whenever
// the order already existed, regardless of who raced whom.
type Result struct {
	TransactionRef string             `json:"transaction_ref"`
	OrderID        uuid.UUID          `json:"order_id"`
	Status         models.OrderStatus `json:"status"`
	Created        bool               `json:"created"`
}

// TxRunner runs a function inside a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Engine turns a completed provider session into exactly one order and at
// most one stock decrement. Safe to call any number of times for the same
// session: the unique index on transaction_ref is the arbiter, the Redis
// guard is only a cheap fast path in front of it.
type Engine struct {
	tx       TxRunner
	provider payments.Provider
	orders   orders.Repository
	catalog  catalog.Repository
	guard    redis.IdempotencyStore
	guardTTL time.Duration
	metrics  *metrics.ReconcileMetrics
	log      *logger.Logger
}

func NewEngine(
	tx TxRunner,
	provider payments.Provider,
	orderRepo orders.Repository,
	catalogRepo catalog.Repository,
	guard redis.IdempotencyStore,
	guardTTL time.Duration,
	m *metrics.ReconcileMetrics,
	log *logger.Logger,
) *Engine {
	return &Engine{
		tx:       tx,
		provider: provider,
		orders:   orderRepo,
		catalog:  catalogRepo,
		guard:    guard,
		guardTTL: guardTTL,
		metrics:  m,
		log:      log,
	}
}

// Reconcile resolves a checkout session into its order.
func (e *Engine) Reconcile(ctx context.Context, sessionID string) (*Result, error) {
	start := time.Now()
	result, err := e.reconcile(ctx, sessionID)

	outcome := OutcomeFailed
	if err == nil {
		switch {
		case !result.Created:
			outcome = OutcomeDuplicate
		case result.Status == models.OrderStatusBackorder:
			outcome = OutcomeBackorder
		default:
			outcome = OutcomeCreated
		}
	}
	e.metrics.IncOutcome(outcome)
	e.metrics.ObserveDuration(outcome, time.Since(start))
	return result, err
}

func (e *Engine) reconcile(ctx context.Context, sessionID string) (*Result, error) {
	if sessionID == "" {
		return nil, errors.New(errors.CodeValidation, "session_id is required")
	}
	ctx = e.log.WithSessionID(ctx, sessionID)

	if result := e.guardFastPath(ctx, sessionID); result != nil {
		return result, nil
	}

	session, err := e.provider.FetchSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != payments.SessionStatusComplete {
		return nil, errors.New(errors.CodePaymentIncomplete, "payment session is not complete").
			WithDetails(map[string]any{"status": string(session.Status)})
	}

	transactionRef := session.TransactionRef
	if transactionRef == "" {
		transactionRef = session.ID
	}
	ctx = e.log.WithTransactionRef(ctx, transactionRef)

	bookID, err := uuid.Parse(session.Metadata[payments.MetadataBookID])
	if err != nil {
		return nil, errors.New(errors.CodeValidation, "session carries no usable book reference")
	}
	buyerEmail := session.Metadata[payments.MetadataBuyerEmail]
	if buyerEmail == "" {
		buyerEmail = session.BuyerEmail
	}
	quantity := 1
	if q, perr := strconv.Atoi(session.Metadata["quantity"]); perr == nil && q > 0 {
		quantity = q
	}

	result, err := e.settle(ctx, transactionRef, bookID, buyerEmail, quantity, session)
	if err != nil {
		return nil, err
	}

	e.markGuard(ctx, sessionID, transactionRef)
	switch {
	case !result.Created:
		e.log.Info(ctx, "reconcile found existing order")
	case result.Status == models.OrderStatusBackorder:
		e.metrics.IncBackorder()
		e.log.Warn(ctx, "order created on backorder, stock not decremented")
	default:
		e.log.Info(ctx, "order created and stock decremented")
	}
	return result, nil
}

// settle runs the transactional core: fast-path lookup, book load, stock
// decrement, order insert. A lost insert race aborts the transaction; the
// winner is then read back outside it.
func (e *Engine) settle(
	ctx context.Context,
	transactionRef string,
	bookID uuid.UUID,
	buyerEmail string,
	quantity int,
	session *payments.Session,
) (*Result, error) {
	var result *Result
	txErr := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := e.orders.WithTx(tx)
		catalogRepo := e.catalog.WithTx(tx)

		existing, err := orderRepo.FindByTransactionRef(ctx, transactionRef)
		if err == nil {
			result = resultFor(existing, false)
			return nil
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		book, err := catalogRepo.FindByID(ctx, bookID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.CodeNotFound, "book referenced by payment no longer exists").
					WithDetails(map[string]any{"book_id": bookID.String()})
			}
			return err
		}

		order := &models.Order{
			BookID:         book.ID,
			TransactionRef: transactionRef,
			BuyerEmail:     buyerEmail,
			SellerEmail:    book.SellerEmail,
			Title:          book.Title,
			Category:       book.Category,
			ImageURL:       book.ImageURL,
			Quantity:       quantity,
			UnitPriceCents: unitPrice(session, book, quantity),
			Status:         models.OrderStatusPending,
		}
		// Insert before the decrement: a lost race must not touch stock,
		// and only the transaction that owns the order row may decrement.
		created, winner, err := orderRepo.InsertIfAbsent(ctx, order)
		if err != nil {
			return err
		}
		if !created {
			result = resultFor(winner, false)
			return nil
		}

		decremented, err := catalogRepo.DecrementStock(ctx, book.ID, quantity)
		if err != nil {
			return err
		}
		if !decremented {
			winner.Status = models.OrderStatusBackorder
			if err := orderRepo.UpdateStatus(ctx, winner.ID, models.OrderStatusBackorder); err != nil {
				return err
			}
		}
		result = resultFor(winner, true)
		return nil
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, orders.ConstraintTransactionRef) {
			// Lost the insert race. The transaction (and its decrement)
			// rolled back; the winner's row is the order.
			winner, ferr := e.orders.FindByTransactionRef(ctx, transactionRef)
			if ferr != nil {
				return nil, errors.Wrap(errors.CodeInternal, ferr, "resolving winning order after insert race")
			}
			return resultFor(winner, false), nil
		}
		if coded := errors.As(txErr); coded != nil {
			return nil, coded
		}
		return nil, errors.Wrap(errors.CodeInternal, txErr, "reconciling payment")
	}
	return result, nil
}

// guardFastPath answers from Redis when this session was already settled.
// The database remains authoritative: a guard hit without a matching order
// row falls through to the full path.
func (e *Engine) guardFastPath(ctx context.Context, sessionID string) *Result {
	if e.guard == nil {
		return nil
	}
	ref, err := e.guard.Get(ctx, e.guard.IdempotencyKey(guardScope, sessionID))
	if err != nil || ref == "" {
		return nil
	}
	order, err := e.orders.FindByTransactionRef(ctx, ref)
	if err != nil {
		return nil
	}
	return resultFor(order, false)
}

func (e *Engine) markGuard(ctx context.Context, sessionID, transactionRef string) {
	if e.guard == nil {
		return
	}
	key := e.guard.IdempotencyKey(guardScope, sessionID)
	if _, err := e.guard.SetNX(ctx, key, transactionRef, e.guardTTL); err != nil {
		// Guard is advisory only; losing it costs a provider round trip.
		e.log.Warn(ctx, "failed to mark reconcile guard")
	}
}

func resultFor(order *models.Order, created bool) *Result {
	return &Result{
		TransactionRef: order.TransactionRef,
		OrderID:        order.ID,
		Status:         order.Status,
		Created:        created,
	}
}

// unitPrice prefers the captured amount from the provider, split across the
// quantity, and falls back to the catalog price when the session amount is
// absent or does not divide evenly.
func unitPrice(session *payments.Session, book *models.Book, quantity int) int {
	if session.AmountCents > 0 && quantity > 0 && session.AmountCents%quantity == 0 {
		return session.AmountCents / quantity
	}
	return book.PriceCents
}
