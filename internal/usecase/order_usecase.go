package usecase

import (
	"context"

	"storefront/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutItem is one cart line submitted at checkout. Price is what the client
// displayed and is never used for pricing.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
	Price     *decimal.Decimal
}

// CreateOrderInput is a checkout request.
type CreateOrderInput struct {
	ShippingAddress *entity.ShippingAddress
	Notes           string
	Items           []CheckoutItem
}

// OrderUsecase covers the customer side of orders.
type OrderUsecase interface {
	// CreateOrder prices the items from the live catalog, stores the order and clears the cart.
	CreateOrder(ctx context.Context, userID uuid.UUID, input *CreateOrderInput) (*entity.Order, error)

	// ListOrders returns the caller's orders, newest first.
	ListOrders(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page[*entity.Order], error)

	// GetOrder returns an order owned by the caller.
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*entity.Order, error)

	// GetOrderQR returns a PNG QR code for an order owned by the caller.
	GetOrderQR(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error)
}

// AdminListOrdersInput filters the back-office order listing.
type AdminListOrdersInput struct {
	Status entity.OrderStatus
	Search string
	PageRequest
}

// AddOrderItemInput adds a product to an existing order.
// CustomPrice overrides the catalog price when set and positive.
type AddOrderItemInput struct {
	ProductID   uuid.UUID
	Quantity    int
	CustomPrice *decimal.Decimal
}

// UpdateOrderInput is a partial order update. Nil fields keep their current value.
type UpdateOrderInput struct {
	Status          *entity.OrderStatus
	TrackingNumber  *string
	Notes           *string
	Customer        *entity.CustomerDetails
	ShippingAddress *entity.ShippingAddress
}

// AdminOrderUsecase covers back-office order management.
type AdminOrderUsecase interface {
	ListOrders(ctx context.Context, input *AdminListOrdersInput) (*Page[*entity.Order], error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error)

	// UpdateOrder applies a partial update. Customer details are written to the owning user.
	UpdateOrder(ctx context.Context, orderID uuid.UUID, input *UpdateOrderInput) (*entity.Order, error)

	// AddItem adds or merges a line and recomputes the totals.
	AddItem(ctx context.Context, orderID uuid.UUID, input *AddOrderItemInput) (*entity.Order, error)

	// RemoveItem deletes a line and recomputes the totals.
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*entity.Order, error)
}
