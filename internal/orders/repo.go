package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"gorm.io/gorm"
)

// ConstraintTransactionRef is the unique index backing exactly-once order
// creation per captured payment.
const ConstraintTransactionRef = "uq_orders_transaction_ref"

// Repository is the order ledger. Reconciliation only ever appends through
// InsertIfAbsent; everything else is read/fulfillment surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, order *models.Order) (bool, *models.Order, error)
	FindByTransactionRef(ctx context.Context, transactionRef string) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByBuyer(ctx context.Context, buyerEmail string) ([]models.Order, error)
	FindBySeller(ctx context.Context, sellerEmail string) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent appends the order unless one already exists for the same
// transaction_ref. On the duplicate path it re-reads and returns the winning
// row, so a lost race is indistinguishable from having created the order
// first. The unique index is the arbiter; the application never guesses.
func (r *repository) InsertIfAbsent(ctx context.Context, order *models.Order) (bool, *models.Order, error) {
	err := r.db.WithContext(ctx).Create(order).Error
	if err == nil {
		return true, order, nil
	}
	if !db.IsUniqueViolation(err, ConstraintTransactionRef) {
		return false, nil, err
	}
	existing, ferr := r.FindByTransactionRef(ctx, order.TransactionRef)
	if ferr != nil {
		// Inside a Postgres transaction a unique violation aborts the tx, so
		// the re-read above cannot succeed there. Surface the original
		// violation; the caller rolls back and resolves the winner outside.
		return false, nil, err
	}
	return false, existing, nil
}

func (r *repository) FindByTransactionRef(ctx context.Context, transactionRef string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("transaction_ref = ?", transactionRef).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByBuyer(ctx context.Context, buyerEmail string) ([]models.Order, error) {
	var found []models.Order
	if err := r.db.WithContext(ctx).
		Where("buyer_email = ?", buyerEmail).
		Order("created_at DESC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerEmail string) ([]models.Order, error) {
	var found []models.Order
	if err := r.db.WithContext(ctx).
		Where("seller_email = ?", sellerEmail).
		Order("created_at DESC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
