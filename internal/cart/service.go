package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harborline/storefront-backend/pkg/db/models"
	"github.com/harborline/storefront-backend/pkg/enums"
	pkgerrors "github.com/harborline/storefront-backend/pkg/errors"
)

// maxSaveAttempts bounds the optimistic-concurrency retry loop. Two
// writers racing on the same cart re-read and re-validate; only a
// persistently contended cart surfaces a conflict to the caller.
const maxSaveAttempts = 3

// Service exposes the cart consistency and pricing engine.
type Service interface {
	CreateCart(ctx context.Context, userID *uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error)
	ClearCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	MergeCart(ctx context.Context, guestCartID, userID uuid.UUID) (*models.Cart, error)
}

type service struct {
	repo    CartRepository
	tx      txRunner
	catalog productLoader
	rules   PricingRules
	now     func() time.Time
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, catalog productLoader, rules PricingRules) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog loader required")
	}
	if rules.MaxQuantityPerItem < 1 || rules.Retention <= 0 {
		return nil, fmt.Errorf("invalid pricing rules")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		catalog: catalog,
		rules:   rules,
		now:     time.Now,
	}, nil
}

// CreateCart persists a fresh empty cart, optionally owned by a user.
func (s *service) CreateCart(ctx context.Context, userID *uuid.UUID) (*models.Cart, error) {
	cart := &models.Cart{
		UserID:    userID,
		Status:    enums.CartStatusActive,
		ExpiresAt: s.now().Add(s.rules.Retention),
	}
	applyTotals(cart, s.rules.ComputeTotals(nil))

	created, err := s.repo.Create(ctx, cart)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

// GetCart returns the cart after reconciling its items against current
// catalog truth. Repairs are persisted before the cart is returned, so
// a client never sees a price or quantity the catalog would reject.
func (s *service) GetCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		cart, err := s.loadActiveCart(ctx, cartID)
		if err != nil {
			return nil, err
		}

		items, changed, err := reconcileItems(ctx, cart.Items, s.catalog)
		if err != nil {
			return nil, err
		}
		cart.Items = items

		totals := s.rules.ComputeTotals(items)
		if !changed && totalsMatch(cart, totals) {
			return cart, nil
		}
		applyTotals(cart, totals)

		// Reads repair state but do not extend the retention window.
		err = s.persist(ctx, cart, cart.Version)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist reconciled cart")
		}
	}
	return nil, concurrentModification()
}

// AddItem appends a product to the cart or raises the quantity of an
// existing line. The unit price is always taken fresh from the catalog
// on this path, never reused from the prior snapshot.
func (s *service) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := s.validateQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		product, err := s.loadProductForSale(ctx, productID)
		if err != nil {
			return err
		}

		newQty := quantity
		idx := findItemIndex(cart.Items, productID)
		if idx >= 0 {
			newQty += cart.Items[idx].Quantity
		}
		if newQty > s.rules.MaxQuantityPerItem {
			return pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity exceeds the limit of %d per item", s.rules.MaxQuantityPerItem))
		}
		if newQty > product.StockQty {
			return insufficientStock(product.StockQty)
		}

		if idx >= 0 {
			item := &cart.Items[idx]
			item.Quantity = newQty
			item.UnitPriceCents = product.PriceCents
			item.LineSubtotalCents = product.PriceCents * int64(newQty)
			return nil
		}

		cart.Items = append(cart.Items, models.CartItem{
			ProductID:         productID,
			Quantity:          quantity,
			UnitPriceCents:    product.PriceCents,
			LineSubtotalCents: product.PriceCents * int64(quantity),
			Position:          len(cart.Items),
		})
		return nil
	})
}

// UpdateQuantity replaces a line's quantity and refreshes its price snapshot.
func (s *service) UpdateQuantity(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if err := s.validateQuantity(quantity); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		idx := findItemIndex(cart.Items, productID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}

		product, err := s.loadProductForSale(ctx, productID)
		if err != nil {
			return err
		}
		if quantity > product.StockQty {
			return insufficientStock(product.StockQty)
		}

		item := &cart.Items[idx]
		item.Quantity = quantity
		item.UnitPriceCents = product.PriceCents
		item.LineSubtotalCents = product.PriceCents * int64(quantity)
		return nil
	})
}

// RemoveItem deletes a single line from the cart.
func (s *service) RemoveItem(ctx context.Context, cartID, productID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		idx := findItemIndex(cart.Items, productID)
		if idx < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
		}
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
}

// ClearCart empties the cart unconditionally.
func (s *service) ClearCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.mutate(ctx, cartID, func(cart *models.Cart) error {
		cart.Items = nil
		return nil
	})
}

// MergeCart folds a guest cart into the user's active cart, creating one
// when needed, and marks the guest cart converted. A guest cart is
// consumed by exactly one merge: the conversion is guarded on the cart
// still being active and commits atomically with the target save.
// Quantities for shared products are summed; prices are refreshed to
// current catalog values where the product still resolves. Stock is
// deliberately not re-validated here: the next read reconciles the
// merged cart.
func (s *service) MergeCart(ctx context.Context, guestCartID, userID uuid.UUID) (*models.Cart, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		// The guest cart is re-read on every attempt so a retry after a
		// version conflict observes a conversion done by a concurrent
		// merge instead of replaying the stale snapshot.
		guest, err := s.repo.FindByID(ctx, guestCartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, emptyOrMissingGuestCart()
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load guest cart")
		}
		if guest.Status != enums.CartStatusActive || len(guest.Items) == 0 {
			if attempt > 0 {
				return nil, concurrentModification()
			}
			return nil, emptyOrMissingGuestCart()
		}

		target, err := s.loadOrCreateUserCart(ctx, userID)
		if err != nil {
			return nil, err
		}

		for _, guestItem := range guest.Items {
			s.mergeLine(ctx, target, guestItem)
		}

		applyTotals(target, s.rules.ComputeTotals(target.Items))
		target.ExpiresAt = s.now().Add(s.rules.Retention)

		convertedAt := s.now()
		err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			txRepo := s.repo.WithTx(tx)
			if err := txRepo.SaveVersioned(ctx, target, target.Version); err != nil {
				return err
			}
			return txRepo.Convert(ctx, guest.ID, convertedAt)
		})
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist merged cart")
		}
	}
	return nil, concurrentModification()
}

// mergeLine applies one guest line to the target cart. Price refresh is
// best effort: when the catalog lookup fails the stale snapshot rides
// along and the next reconciliation pass repairs or drops it.
func (s *service) mergeLine(ctx context.Context, target *models.Cart, guestItem models.CartItem) {
	price := guestItem.UnitPriceCents
	if product, err := s.catalog.GetProduct(ctx, guestItem.ProductID); err == nil && product.IsActive {
		price = product.PriceCents
	}

	idx := findItemIndex(target.Items, guestItem.ProductID)
	if idx >= 0 {
		item := &target.Items[idx]
		combined := item.Quantity + guestItem.Quantity
		if combined > s.rules.MaxQuantityPerItem {
			combined = s.rules.MaxQuantityPerItem
		}
		item.Quantity = combined
		item.UnitPriceCents = price
		item.LineSubtotalCents = price * int64(combined)
		return
	}

	target.Items = append(target.Items, models.CartItem{
		ProductID:         guestItem.ProductID,
		Quantity:          guestItem.Quantity,
		UnitPriceCents:    price,
		LineSubtotalCents: price * int64(guestItem.Quantity),
		Position:          len(target.Items),
	})
}

func (s *service) loadOrCreateUserCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user cart")
	}
	return s.CreateCart(ctx, &userID)
}

// mutate runs the read-validate-write cycle for a cart mutation under
// optimistic concurrency, recomputing totals and extending the
// retention window on success.
func (s *service) mutate(ctx context.Context, cartID uuid.UUID, fn func(cart *models.Cart) error) (*models.Cart, error) {
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		cart, err := s.loadActiveCart(ctx, cartID)
		if err != nil {
			return nil, err
		}

		if err := fn(cart); err != nil {
			return nil, err
		}

		applyTotals(cart, s.rules.ComputeTotals(cart.Items))
		cart.ExpiresAt = s.now().Add(s.rules.Retention)

		err = s.persist(ctx, cart, cart.Version)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
		}
	}
	return nil, concurrentModification()
}

func (s *service) persist(ctx context.Context, cart *models.Cart, expectedVersion int64) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SaveVersioned(ctx, cart, expectedVersion)
	})
}

// loadActiveCart resolves a cart by id. Converted and abandoned carts
// are deliberately invisible here: a consumed guest cart id must not
// come back to life on a later read.
func (s *service) loadActiveCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.Status != enums.CartStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	}
	return cart, nil
}

func (s *service) loadProductForSale(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) validateQuantity(quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if quantity > s.rules.MaxQuantityPerItem {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity exceeds the limit of %d per item", s.rules.MaxQuantityPerItem))
	}
	return nil
}

func findItemIndex(items []models.CartItem, productID uuid.UUID) int {
	for i := range items {
		if items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func insufficientStock(available int) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation,
		fmt.Sprintf("insufficient stock: only %d available", available)).
		WithDetails(map[string]int{"available": available})
}

func emptyOrMissingGuestCart() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "guest cart is empty or missing")
}

func concurrentModification() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeConflict, "cart was modified concurrently, please retry")
}
