package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/harborline/storefront-backend/pkg/enums"
)

// Cart is the persisted shopping cart. The totals columns are a cached
// projection of Items and are recomputed on every read and write path;
// they must never be trusted without recomputation.
type Cart struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         *uuid.UUID       `gorm:"column:user_id;type:uuid;index:idx_carts_user_status"`
	Status         enums.CartStatus `gorm:"column:status;not null;default:'active';index:idx_carts_user_status"`
	Version        int64            `gorm:"column:version;not null;default:0"`
	TotalItemCount int              `gorm:"column:total_item_count;not null;default:0"`
	SubtotalCents  int64            `gorm:"column:subtotal_cents;not null;default:0"`
	TaxCents       int64            `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents  int64            `gorm:"column:shipping_cents;not null;default:0"`
	TotalCents     int64            `gorm:"column:total_cents;not null;default:0"`
	ConvertedAt    *time.Time       `gorm:"column:converted_at"`
	ExpiresAt      time.Time        `gorm:"column:expires_at;not null"`
	Items          []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
