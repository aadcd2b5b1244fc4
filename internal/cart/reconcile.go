package cart

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
	pkgerrors "github.com/harborline/storefront-backend/pkg/errors"
)

// reconcileItems repairs a cart's line items against current catalog
// truth. Items whose product vanished, went inactive, or ran fully out
// of stock are dropped; drifted prices are refreshed; quantities above
// stock are clamped. Returns the repaired slice and whether anything
// changed. Item order is preserved.
func reconcileItems(ctx context.Context, items []models.CartItem, catalog productLoader) ([]models.CartItem, bool, error) {
	repaired := make([]models.CartItem, 0, len(items))
	changed := false

	for _, item := range items {
		product, err := catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				changed = true
				continue
			}
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product for reconciliation")
		}

		if !product.IsActive {
			changed = true
			continue
		}

		// A clamp to zero is indistinguishable from unavailability, so it
		// shares the removal path instead of leaving a degenerate line.
		if product.StockQty <= 0 {
			changed = true
			continue
		}

		if item.UnitPriceCents != product.PriceCents {
			item.UnitPriceCents = product.PriceCents
			changed = true
		}
		if item.Quantity > product.StockQty {
			item.Quantity = product.StockQty
			changed = true
		}
		if want := item.UnitPriceCents * int64(item.Quantity); item.LineSubtotalCents != want {
			item.LineSubtotalCents = want
			changed = true
		}

		repaired = append(repaired, item)
	}

	return repaired, changed, nil
}
