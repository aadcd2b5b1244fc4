package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
	"github.com/harborline/storefront-backend/pkg/enums"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cart_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	carts := `
CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  version INTEGER NOT NULL DEFAULT 0,
  total_item_count INTEGER NOT NULL DEFAULT 0,
  subtotal_cents INTEGER NOT NULL DEFAULT 0,
  tax_cents INTEGER NOT NULL DEFAULT 0,
  shipping_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL DEFAULT 0,
  converted_at DATETIME,
  expires_at DATETIME NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, db.Exec(carts).Error)

	items := `
CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_subtotal_cents INTEGER NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  UNIQUE (cart_id, product_id)
);`
	require.NoError(t, db.Exec(items).Error)

	return db
}

func seedCart(t *testing.T, repo *Repository, userID *uuid.UUID, items []models.CartItem) *models.Cart {
	t.Helper()
	cart, err := repo.Create(context.Background(), &models.Cart{
		UserID:    userID,
		Status:    enums.CartStatusActive,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	if len(items) > 0 {
		cart.Items = items
		require.NoError(t, repo.SaveVersioned(context.Background(), cart, cart.Version))
	}
	return cart
}

func TestRepositoryCreateAndFindByID(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	cart := seedCart(t, repo, nil, nil)
	require.NotEqual(t, uuid.Nil, cart.ID)

	found, err := repo.FindByID(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, cart.ID, found.ID)
	assert.Equal(t, enums.CartStatusActive, found.Status)
	assert.Empty(t, found.Items)
}

func TestRepositoryFindByIDUnknown(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositorySaveVersionedReplacesItemsInOrder(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	first := uuid.New()
	second := uuid.New()
	cart := seedCart(t, repo, nil, []models.CartItem{
		{ProductID: first, Quantity: 1, UnitPriceCents: 100, LineSubtotalCents: 100},
		{ProductID: second, Quantity: 2, UnitPriceCents: 200, LineSubtotalCents: 400},
	})
	require.Equal(t, int64(1), cart.Version)

	// Drop the first line and keep the second; positions renumber.
	cart.Items = cart.Items[1:]
	require.NoError(t, repo.SaveVersioned(context.Background(), cart, cart.Version))
	require.Equal(t, int64(2), cart.Version)

	found, err := repo.FindByID(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, second, found.Items[0].ProductID)
	assert.Equal(t, 0, found.Items[0].Position)
	assert.Equal(t, int64(2), found.Version)
}

func TestRepositorySaveVersionedStaleVersion(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	cart := seedCart(t, repo, nil, []models.CartItem{
		{ProductID: uuid.New(), Quantity: 1, UnitPriceCents: 100, LineSubtotalCents: 100},
	})

	stale := *cart
	stale.Items = append([]models.CartItem(nil), cart.Items...)

	// A concurrent writer bumps the version first.
	cart.SubtotalCents = 100
	require.NoError(t, repo.SaveVersioned(context.Background(), cart, cart.Version))

	err := repo.SaveVersioned(context.Background(), &stale, stale.Version)
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestRepositoryFindActiveByUser(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	userID := uuid.New()
	otherID := uuid.New()
	seedCart(t, repo, &otherID, nil)
	converted := seedCart(t, repo, &userID, nil)
	require.NoError(t, repo.Convert(context.Background(), converted.ID, time.Now()))
	active := seedCart(t, repo, &userID, nil)

	found, err := repo.FindActiveByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveByUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryConvertStampsConvertedAt(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	cart := seedCart(t, repo, nil, nil)
	convertedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Convert(context.Background(), cart.ID, convertedAt))

	found, err := repo.FindByID(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusConverted, found.Status)
	require.NotNil(t, found.ConvertedAt)
	assert.WithinDuration(t, convertedAt, *found.ConvertedAt, time.Second)
}

func TestRepositoryConvertConsumedCartConflicts(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	cart := seedCart(t, repo, nil, nil)
	require.NoError(t, repo.Convert(context.Background(), cart.ID, time.Now()))

	// A second conversion finds no active row and must report the race.
	err := repo.Convert(context.Background(), cart.ID, time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = repo.Convert(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestRepositoryMarkExpired(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	now := time.Now()
	expired, err := repo.Create(context.Background(), &models.Cart{
		Status:    enums.CartStatusActive,
		ExpiresAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)
	fresh, err := repo.Create(context.Background(), &models.Cart{
		Status:    enums.CartStatusActive,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	n, err := repo.MarkExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusAbandoned, found.Status)

	found, err = repo.FindByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusActive, found.Status)
}

func TestRepositoryPurgeRetired(t *testing.T) {
	repo := NewRepository(setupCartTestDB(t))

	old, err := repo.Create(context.Background(), &models.Cart{
		Status:    enums.CartStatusAbandoned,
		ExpiresAt: time.Now().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	active, err := repo.Create(context.Background(), &models.Cart{
		Status:    enums.CartStatusActive,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	n, err := repo.PurgeRetired(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(context.Background(), old.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindByID(context.Background(), active.ID)
	assert.NoError(t, err)
}
