package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  sku TEXT NOT NULL UNIQUE,
  title TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  stock_qty INTEGER NOT NULL DEFAULT 0,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func TestRepositoryGetProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{
		ID: uuid.New(), SKU: "SKU-100", Title: "Widget",
		PriceCents: 1999, StockQty: 12, IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)

	found, err := repo.GetProduct(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Title)
	assert.Equal(t, int64(1999), found.PriceCents)

	_, err = repo.GetProduct(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryGetProductBySKU(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)

	product := &models.Product{
		ID: uuid.New(), SKU: "SKU-200", Title: "Gadget",
		PriceCents: 2500, StockQty: 3, IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)

	found, err := repo.GetProductBySKU(context.Background(), "SKU-200")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)

	_, err = repo.GetProductBySKU(context.Background(), "SKU-MISSING")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
