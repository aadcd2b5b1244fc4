package cart

import (
	cartdto "github.com/harborline/storefront-backend/api/controllers/cart/dto"
	"github.com/harborline/storefront-backend/pkg/db/models"
)

func newCartView(record *models.Cart) cartdto.CartView {
	items := make([]cartdto.CartItemView, 0, len(record.Items))
	for _, item := range record.Items {
		items = append(items, cartdto.CartItemView{
			ProductID:         item.ProductID,
			Quantity:          item.Quantity,
			UnitPriceCents:    item.UnitPriceCents,
			LineSubtotalCents: item.LineSubtotalCents,
		})
	}

	return cartdto.CartView{
		ID:             record.ID,
		UserID:         record.UserID,
		Status:         string(record.Status),
		Items:          items,
		TotalItemCount: record.TotalItemCount,
		Totals: cartdto.CartTotalsView{
			SubtotalCents: record.SubtotalCents,
			TaxCents:      record.TaxCents,
			ShippingCents: record.ShippingCents,
			TotalCents:    record.TotalCents,
		},
		ExpiresAt: record.ExpiresAt,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}
