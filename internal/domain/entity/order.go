package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// fulfilment order of the forward states
var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusProcessing: 1,
	OrderStatusShipped:    2,
	OrderStatusDelivered:  3,
}

// IsValid checks if the OrderStatus is a known value.
func (s OrderStatus) IsValid() bool {
	if s == OrderStatusCancelled {
		return true
	}

	_, ok := orderStatusRank[s]

	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether an order in status s may move to next.
// Forward moves may skip steps; any open order may be cancelled; setting the
// current status again is always allowed and changes nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsValid() {
		return false
	}

	if s == next {
		return true
	}

	if s.IsTerminal() {
		return false
	}

	if next == OrderStatusCancelled {
		return true
	}

	return orderStatusRank[next] > orderStatusRank[s]
}

// Order is a priced snapshot of a checkout. Item prices never follow later product changes.
type Order struct {
	ID              uuid.UUID        `json:"id"`
	OrderNumber     string           `json:"order_number"`
	UserID          uuid.UUID        `json:"user_id"`
	Status          OrderStatus      `json:"status"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
	ShippingAmount  decimal.Decimal  `json:"shipping_amount"`
	TotalAmount     decimal.Decimal  `json:"total_amount"`
	Notes           string           `json:"notes"`
	TrackingNumber  string           `json:"tracking_number"`
	Items           []*OrderItem     `json:"items"`
	ShippingAddress *ShippingAddress `json:"shipping_address,omitempty"`
	Customer        *User            `json:"customer,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// RecalculateTotals recomputes the subtotal from the current items and
// sets TotalAmount to subtotal plus shipping.
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.Total)
	}

	o.Subtotal = subtotal
	o.TotalAmount = subtotal.Add(o.ShippingAmount)
}

// AmountsStorable reports whether every line total, the subtotal and the total fit the money columns.
func (o *Order) AmountsStorable() bool {
	for _, item := range o.Items {
		if !IsStorableMoney(item.Price) || !IsStorableMoney(item.Total) {
			return false
		}
	}

	return IsStorableMoney(o.Subtotal) && IsStorableMoney(o.TotalAmount)
}

// FindItemByProduct returns the line for productID, or nil.
func (o *Order) FindItemByProduct(productID uuid.UUID) *OrderItem {
	for _, item := range o.Items {
		if item.ProductID == productID {
			return item
		}
	}

	return nil
}

// OrderItem is one priced line of an order.
type OrderItem struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // Unit price captured when the line was written.
	Total     decimal.Decimal `json:"total"`
	Product   *Product        `json:"product,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewOrderItem builds a line with total = price × quantity.
func NewOrderItem(orderID, productID uuid.UUID, quantity int, price decimal.Decimal) *OrderItem {
	return &OrderItem{
		ID:        uuid.New(),
		OrderID:   orderID,
		ProductID: productID,
		Quantity:  quantity,
		Price:     price,
		Total:     price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Merge adds quantity to the line and reprices the whole line at price.
func (i *OrderItem) Merge(quantity int, price decimal.Decimal) {
	i.Quantity += quantity
	i.Price = price
	i.Total = price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ShippingAddress is the delivery address copied onto an order.
type ShippingAddress struct {
	ID           uuid.UUID `json:"id"`
	OrderID      uuid.UUID `json:"order_id"`
	FullName     string    `json:"full_name"`
	Phone        string    `json:"phone"`
	AddressLine1 string    `json:"address_line1"`
	AddressLine2 string    `json:"address_line2"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	PostalCode   string    `json:"postal_code"`
	Country      string    `json:"country"`
}

// MissingFields lists the required address fields that are blank.
func (a *ShippingAddress) MissingFields() []string {
	var missing []string

	required := []struct {
		name  string
		value string
	}{
		{"full_name", a.FullName},
		{"address_line1", a.AddressLine1},
		{"city", a.City},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}

	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	return missing
}
