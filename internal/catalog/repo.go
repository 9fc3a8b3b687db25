package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"gorm.io/gorm"
)

// Repository owns durable access to book listings and their stock counters.
// Stock is mutated only through DecrementStock; everything else treats it as
// read-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, book *models.Book) (*models.Book, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error)
	List(ctx context.Context, limit int) ([]models.Book, error)
	Latest(ctx context.Context, limit int) ([]models.Book, error)
	Search(ctx context.Context, query string, limit int) ([]models.Book, error)
	FindBySeller(ctx context.Context, sellerEmail string) ([]models.Book, error)
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return nil, err
	}
	return book, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]models.Book, error) {
	var books []models.Book
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) Latest(ctx context.Context, limit int) ([]models.Book, error) {
	if limit <= 0 {
		limit = 8
	}
	return r.List(ctx, limit)
}

func (r *repository) Search(ctx context.Context, query string, limit int) ([]models.Book, error) {
	var books []models.Book
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	q := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE ? OR LOWER(category) LIKE ?", pattern, pattern).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *repository) FindBySeller(ctx context.Context, sellerEmail string) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Where("seller_email = ?", sellerEmail).
		Order("created_at DESC").
		Find(&books).Error
	if err != nil {
		return nil, err
	}
	return books, nil
}

// DecrementStock applies a single conditional read-modify-write at the
// storage layer. It reports true only when pre-decrement stock covered the
// quantity; otherwise stock is untouched. This is what prevents overselling
// under concurrent reconciliations against the same book.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
