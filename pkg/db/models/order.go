package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus tracks the fulfillment lifecycle of a reconciled order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusBackorder OrderStatus = "backorder"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
)

// Order is the durable artifact produced by payment reconciliation. The
// unique index on transaction_ref is the authoritative guarantee that a
// captured payment materializes at most one order.
type Order struct {
	ID             uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookID         uuid.UUID   `gorm:"column:book_id;type:uuid;not null"`
	TransactionRef string      `gorm:"column:transaction_ref;not null;uniqueIndex:uq_orders_transaction_ref"`
	BuyerEmail     string      `gorm:"column:buyer_email;not null;index"`
	SellerEmail    string      `gorm:"column:seller_email;not null;index"`
	Title          string      `gorm:"column:title;not null"`
	Category       string      `gorm:"column:category;not null"`
	ImageURL       string      `gorm:"column:image_url"`
	Quantity       int         `gorm:"column:quantity;not null;default:1"`
	UnitPriceCents int         `gorm:"column:unit_price_cents;not null"`
	Status         OrderStatus `gorm:"column:status;not null;default:'pending'"`
	CreatedAt      time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
