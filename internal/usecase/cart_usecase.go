package usecase

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
)

// AddToCartInput is a request to put quantity units of a product into the caller's cart.
type AddToCartInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CartUsecase maintains the authenticated user's cart.
// Every operation is scoped to userID; lines of other users are reported as not found.
type CartUsecase interface {
	// AddItem creates the line or merges quantity into an existing one, enforcing availability and stock.
	AddItem(ctx context.Context, userID uuid.UUID, input *AddToCartInput) (*entity.CartItem, error)

	// UpdateItemQuantity sets the absolute quantity of a line.
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*entity.CartItem, error)

	// RemoveItem deletes a line.
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error

	// ClearCart deletes every line of the user.
	ClearCart(ctx context.Context, userID uuid.UUID) error

	// ListItems returns the cart newest first.
	ListItems(ctx context.Context, userID uuid.UUID) ([]*entity.CartItem, error)
}
