package repository

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrCartItemNotFound is returned when a cart line does not exist for the given owner.
var ErrCartItemNotFound = errors.New("cart item not found")

// CartRepository persists cart lines. Every lookup is scoped to the owning user.
type CartRepository interface {
	// FindByUser returns the user's lines, newest first, each with its product and main image.
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*entity.CartItem, error)

	// FindByIDAndUserForUpdate returns the line and locks it until the transaction ends.
	FindByIDAndUserForUpdate(ctx context.Context, id, userID uuid.UUID) (*entity.CartItem, error)

	// FindByUserAndProductForUpdate returns the line for (user, product) and locks it.
	// Returns ErrCartItemNotFound when the user has no line for the product.
	FindByUserAndProductForUpdate(ctx context.Context, userID, productID uuid.UUID) (*entity.CartItem, error)

	// AddQuantity atomically creates the (user, product) line or adds quantity to it
	// and returns the stored line.
	AddQuantity(ctx context.Context, userID, productID uuid.UUID, quantity int) (*entity.CartItem, error)

	// SetQuantity overwrites the quantity of an owned line.
	SetQuantity(ctx context.Context, id, userID uuid.UUID, quantity int) error

	// Delete removes an owned line, returning ErrCartItemNotFound if nothing was removed.
	Delete(ctx context.Context, id, userID uuid.UUID) error

	// DeleteByUser removes every line of the user.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}
