package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/harborline/storefront-backend/pkg/config"
	"github.com/harborline/storefront-backend/pkg/db/models"
)

// PricingRules carries the fixed business rules applied to every cart.
type PricingRules struct {
	TaxRate                    decimal.Decimal
	FreeShippingThresholdCents int64
	FlatShippingFeeCents       int64
	MaxQuantityPerItem         int
	Retention                  time.Duration
}

// DefaultPricingRules returns the rules observed in production: 21% tax,
// free shipping from 50,000 cents, 1,500 cents flat fee otherwise, a 50
// unit cap per line and a 7 day retention window.
func DefaultPricingRules() PricingRules {
	return PricingRules{
		TaxRate:                    decimal.New(21, -2),
		FreeShippingThresholdCents: 50_000,
		FlatShippingFeeCents:       1_500,
		MaxQuantityPerItem:         50,
		Retention:                  7 * 24 * time.Hour,
	}
}

// RulesFromConfig builds PricingRules from the loaded configuration.
func RulesFromConfig(cfg config.CartConfig) (PricingRules, error) {
	rate, err := cfg.TaxRateDecimal()
	if err != nil {
		return PricingRules{}, err
	}
	return PricingRules{
		TaxRate:                    rate,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		FlatShippingFeeCents:       cfg.FlatShippingFeeCents,
		MaxQuantityPerItem:         cfg.MaxQuantityPerItem,
		Retention:                  cfg.Retention,
	}, nil
}

// Totals is the derived monetary projection of a cart's items.
type Totals struct {
	TotalItemCount int
	SubtotalCents  int64
	TaxCents       int64
	ShippingCents  int64
	TotalCents     int64
}

// ComputeTotals derives the cart totals from its line items. Pure: no
// side effects, called after every mutation and before every response
// that includes totals.
func (r PricingRules) ComputeTotals(items []models.CartItem) Totals {
	var totals Totals
	for _, item := range items {
		totals.TotalItemCount += item.Quantity
		totals.SubtotalCents += item.UnitPriceCents * int64(item.Quantity)
	}

	totals.TaxCents = decimal.NewFromInt(totals.SubtotalCents).
		Mul(r.TaxRate).
		Round(0).
		IntPart()

	// An empty cart ships nothing, so it owes no shipping fee.
	if totals.TotalItemCount > 0 && totals.SubtotalCents < r.FreeShippingThresholdCents {
		totals.ShippingCents = r.FlatShippingFeeCents
	}

	totals.TotalCents = totals.SubtotalCents + totals.TaxCents + totals.ShippingCents
	return totals
}

func applyTotals(cart *models.Cart, totals Totals) {
	cart.TotalItemCount = totals.TotalItemCount
	cart.SubtotalCents = totals.SubtotalCents
	cart.TaxCents = totals.TaxCents
	cart.ShippingCents = totals.ShippingCents
	cart.TotalCents = totals.TotalCents
}

func totalsMatch(cart *models.Cart, totals Totals) bool {
	return cart.TotalItemCount == totals.TotalItemCount &&
		cart.SubtotalCents == totals.SubtotalCents &&
		cart.TaxCents == totals.TaxCents &&
		cart.ShippingCents == totals.ShippingCents &&
		cart.TotalCents == totals.TotalCents
}
