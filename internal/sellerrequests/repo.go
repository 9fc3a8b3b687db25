package sellerrequests

import (
	"context"

	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"gorm.io/gorm"
)

// ConstraintEmail backs the one-pending-request-per-identity rule.
const ConstraintEmail = "uq_seller_requests_email"

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.SellerRequest) (*models.SellerRequest, error)
	FindByEmail(ctx context.Context, email string) (*models.SellerRequest, error)
	List(ctx context.Context) ([]models.SellerRequest, error)
	DeleteByEmail(ctx context.Context, email string) error
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

func (r *repository) Create(ctx context.Context, request *models.SellerRequest) (*models.SellerRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.SellerRequest, error) {
	var request models.SellerRequest
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context) ([]models.SellerRequest, error) {
	var found []models.SellerRequest
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}

// DeleteByEmail is a no-op when nothing is pending; role changes call it
// unconditionally.
func (r *repository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&models.SellerRequest{}).Error
}
