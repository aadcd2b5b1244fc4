package cartdto

import (
	"time"

	"github.com/google/uuid"
)

// CartView is the API projection of a cart.
type CartView struct {
	ID             uuid.UUID      `json:"id"`
	UserID         *uuid.UUID     `json:"userId,omitempty"`
	Status         string         `json:"status"`
	Items          []CartItemView `json:"items"`
	TotalItemCount int            `json:"totalItemCount"`
	Totals         CartTotalsView `json:"totals"`
	ExpiresAt      time.Time      `json:"expiresAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// CartItemView is one line of a cart as returned to clients.
type CartItemView struct {
	ProductID         uuid.UUID `json:"productId"`
	Quantity          int       `json:"quantity"`
	UnitPriceCents    int64     `json:"unitPriceCents"`
	LineSubtotalCents int64     `json:"lineSubtotalCents"`
}

// CartTotalsView groups the derived money fields. All values are
// integer cents.
type CartTotalsView struct {
	SubtotalCents int64 `json:"subtotalCents"`
	TaxCents      int64 `json:"taxCents"`
	ShippingCents int64 `json:"shippingCents"`
	TotalCents    int64 `json:"totalCents"`
}
