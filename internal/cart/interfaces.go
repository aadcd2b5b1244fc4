package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	// SaveVersioned persists the cart row and replaces its items, but only
	// when the stored version still equals expectedVersion. Returns
	// ErrVersionConflict when another writer got there first.
	SaveVersioned(ctx context.Context, cart *models.Cart, expectedVersion int64) error
	// Convert consumes an active guest cart, returning ErrVersionConflict
	// when another merge already converted it.
	Convert(ctx context.Context, id uuid.UUID, convertedAt time.Time) error
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}
