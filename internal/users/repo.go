package users

import (
	"context"
	"time"

	"github.com/sumon-ahmed84/book-courier-server11/pkg/db/models"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	TouchLogin(ctx context.Context, email string, at time.Time) error
	UpdateRole(ctx context.Context, email string, role models.UserRole) error
	List(ctx context.Context) ([]models.User, error)
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

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *repository) TouchLogin(ctx context.Context, email string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("last_login_at", at).Error
}

func (r *repository) UpdateRole(ctx context.Context, email string, role models.UserRole) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context) ([]models.User, error) {
	var found []models.User
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&found).Error; err != nil {
		return nil, err
	}
	return found, nil
}
