package entity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		allowed  bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, true},
		{OrderStatusDelivered, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatus("LOST"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrder_RecalculateTotals(t *testing.T) {
	orderID := uuid.New()
	o := &Order{
		ID:             orderID,
		ShippingAmount: decimal.NewFromInt(300),
		Items: []*OrderItem{
			NewOrderItem(orderID, uuid.New(), 2, decimal.NewFromInt(100)),
		},
	}

	o.RecalculateTotals()
	assert.True(t, decimal.NewFromInt(200).Equal(o.Subtotal))
	assert.True(t, decimal.NewFromInt(500).Equal(o.TotalAmount))

	o.Items = nil
	o.RecalculateTotals()
	assert.True(t, decimal.Zero.Equal(o.Subtotal))
	assert.True(t, decimal.NewFromInt(300).Equal(o.TotalAmount))
}

func TestOrderItem_Merge(t *testing.T) {
	item := NewOrderItem(uuid.New(), uuid.New(), 2, decimal.NewFromInt(100))
	assert.True(t, decimal.NewFromInt(200).Equal(item.Total))

	item.Merge(1, decimal.NewFromInt(90))
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, decimal.NewFromInt(90).Equal(item.Price))
	assert.True(t, decimal.NewFromInt(270).Equal(item.Total))
}

func TestShippingAddress_MissingFields(t *testing.T) {
	addr := &ShippingAddress{FullName: "Jane", AddressLine1: "1 Main St", City: " "}
	assert.Equal(t, []string{"city", "postal_code", "country"}, addr.MissingFields())

	addr.City, addr.PostalCode, addr.Country = "Taipei", "100", "TW"
	assert.Empty(t, addr.MissingFields())
}

func TestIdentity_Authorize(t *testing.T) {
	customer := &Identity{UserID: uuid.New(), Roles: Roles{RoleCustomer}}
	manager := &Identity{UserID: uuid.New(), Roles: Roles{RoleManagement}}

	assert.NoError(t, customer.Authorize())
	assert.Error(t, customer.Authorize(AdminRoles...))
	assert.NoError(t, manager.Authorize(AdminRoles...))

	var anonymous *Identity
	assert.Error(t, anonymous.Authorize())
}

func TestCustomerDetails_Apply(t *testing.T) {
	u := &User{Name: "Old", Email: "a@example.com"}

	changed := (&CustomerDetails{Name: ptr("New"), Email: ptr("a@example.com")}).Apply(u)
	assert.True(t, changed)
	assert.Equal(t, "New", u.Name)

	assert.False(t, (&CustomerDetails{}).Apply(u))
}
