package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
	"github.com/harborline/storefront-backend/pkg/enums"
)

// ErrVersionConflict reports that a versioned save lost the race against
// a concurrent writer.
var ErrVersionConflict = errors.New("cart version conflict")

// Repository persists carts and their items through GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByID loads a cart with its items in display order.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ?", id).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindActiveByUser loads the latest active cart owned by the user.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// SaveVersioned writes the cart row guarded by its version column and
// replaces the item rows. Callers wrap it in a transaction so the row
// update and the item replacement land atomically.
func (r *Repository) SaveVersioned(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	tx := r.db.WithContext(ctx)

	res := tx.Model(&models.Cart{}).
		Where("id = ? AND version = ?", cart.ID, expectedVersion).
		Updates(map[string]any{
			"version":          expectedVersion + 1,
			"user_id":          cart.UserID,
			"status":           cart.Status,
			"total_item_count": cart.TotalItemCount,
			"subtotal_cents":   cart.SubtotalCents,
			"tax_cents":        cart.TaxCents,
			"shipping_cents":   cart.ShippingCents,
			"total_cents":      cart.TotalCents,
			"converted_at":     cart.ConvertedAt,
			"expires_at":       cart.ExpiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}

	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(cart.Items) > 0 {
		for i := range cart.Items {
			if cart.Items[i].ID == uuid.Nil {
				cart.Items[i].ID = uuid.New()
			}
			cart.Items[i].CartID = cart.ID
			cart.Items[i].Position = i
		}
		if err := tx.Create(&cart.Items).Error; err != nil {
			return err
		}
	}

	cart.Version = expectedVersion + 1
	return nil
}

// Convert marks an active cart as converted, stamping converted_at. The
// status guard means only one writer can consume the cart; losing the
// race surfaces as ErrVersionConflict so the surrounding transaction
// rolls back.
func (r *Repository) Convert(ctx context.Context, id uuid.UUID, convertedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND status = ?", id, enums.CartStatusActive).
		Updates(map[string]any{
			"status":       enums.CartStatusConverted,
			"converted_at": convertedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// MarkExpired retires active carts whose retention window lapsed.
func (r *Repository) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("status = ? AND expires_at < ?", enums.CartStatusActive, now).
		Update("status", enums.CartStatusAbandoned)
	return res.RowsAffected, res.Error
}

// PurgeRetired hard-deletes abandoned and converted carts that have sat
// untouched past the purge cutoff. Item rows go with them via cascade.
func (r *Repository) PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", []enums.CartStatus{enums.CartStatusAbandoned, enums.CartStatusConverted}, cutoff).
		Delete(&models.Cart{})
	return res.RowsAffected, res.Error
}
