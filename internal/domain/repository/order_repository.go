package repository

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for order persistence.
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderItemNotFound    = errors.New("order item not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
)

// OrderQuery selects a page of orders. Zero-valued fields do not filter.
type OrderQuery struct {
	UserID *uuid.UUID
	Status entity.OrderStatus
	Search string // Matches order number or customer email/name, case-insensitively.
	Page   int
	Limit  int
}

// Offset returns the number of rows skipped before the requested page.
func (q OrderQuery) Offset() int {
	return offset(q.Page, q.Limit)
}

// OrderRepository persists orders, their items and shipping addresses.
type OrderRepository interface {
	// Create stores the order with its items and shipping address.
	// Returns ErrDuplicateOrderNumber when the order number is taken.
	Create(ctx context.Context, order *entity.Order) error

	// FindByID returns the order with items (and their products), shipping address and customer.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	// FindByIDForUpdate locks the order row until the transaction ends and returns it with its items.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error)

	// List returns one page of orders, newest first, with the total match count.
	List(ctx context.Context, q OrderQuery) ([]*entity.Order, int64, error)

	// Update writes status, tracking number and notes.
	Update(ctx context.Context, order *entity.Order) error

	// UpdateTotals writes subtotal and total amount.
	UpdateTotals(ctx context.Context, order *entity.Order) error

	// SaveShippingAddress creates or replaces the order's shipping address.
	SaveShippingAddress(ctx context.Context, address *entity.ShippingAddress) error

	// CreateItem adds a line to an order.
	CreateItem(ctx context.Context, item *entity.OrderItem) error

	// UpdateItem writes quantity, price and total of an existing line.
	UpdateItem(ctx context.Context, item *entity.OrderItem) error

	// DeleteItem removes a line that belongs to orderID, returning ErrOrderItemNotFound otherwise.
	DeleteItem(ctx context.Context, orderID, itemID uuid.UUID) error
}
