package cartdto

import "github.com/google/uuid"

// CreateCartRequest optionally binds the new cart to a known user.
type CreateCartRequest struct {
	UserID *uuid.UUID `json:"userId,omitempty"`
}

// AddItemRequest adds a product to a cart.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=50"`
}

// UpdateQuantityRequest replaces a line's quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=50"`
}

// MergeCartRequest folds a guest cart into the user's cart after login.
type MergeCartRequest struct {
	GuestCartID uuid.UUID `json:"guestCartId" validate:"required"`
	UserID      uuid.UUID `json:"userId" validate:"required"`
}
