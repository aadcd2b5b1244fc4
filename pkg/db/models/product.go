package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog listing the cart engine validates against.
// Catalog management owns these rows; the cart core only reads them.
type Product struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU        string    `gorm:"column:sku;not null;uniqueIndex"`
	Title      string    `gorm:"column:title;not null"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	StockQty   int       `gorm:"column:stock_qty;not null;default:0"`
	IsActive   bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
