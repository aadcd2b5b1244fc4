package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one product/quantity line within a cart. UnitPriceCents is
// a snapshot captured at the last reconciliation and may trail the
// catalog until the cart is next read. At most one row exists per
// (cart_id, product_id).
type CartItem struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID            uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_cart_items_cart_product"`
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_cart_items_cart_product"`
	Quantity          int       `gorm:"column:quantity;not null"`
	UnitPriceCents    int64     `gorm:"column:unit_price_cents;not null"`
	LineSubtotalCents int64     `gorm:"column:line_subtotal_cents;not null"`
	Position          int       `gorm:"column:position;not null;default:0"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
