package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book represents a seller's listing. Stock is only ever reduced through the
// catalog repository's conditional decrement.
type Book struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Category    string    `gorm:"column:category;not null"`
	PriceCents  int       `gorm:"column:price_cents;not null"`
	Stock       int       `gorm:"column:stock;not null;default:0"`
	SellerEmail string    `gorm:"column:seller_email;not null;index"`
	ImageURL    string    `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
