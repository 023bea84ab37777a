package impl

import (
	"context"
	"fmt"
	"testing"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type adminOrderServiceFixtures struct {
	service   usecase.AdminOrderUsecase
	store     *memStore
	publisher *mockEventPublisher
}

func createTestAdminOrderService(t *testing.T) *adminOrderServiceFixtures {
	t.Helper()

	store := newMemStore()
	publisher := new(mockEventPublisher)

	return &adminOrderServiceFixtures{
		service: NewAdminOrderService(AdminOrderServiceParams{
			TxManager: &memTxManager{store: store},
			OrderRepo: store.NewOrderRepository(),
			Publisher: publisher,
			Config:    newTestConfig(),
			Logger:    newDiscardLogger(),
		}),
		store:     store,
		publisher: publisher,
	}
}

// seedOrder stores a PENDING order holding qty units of product at the given unit price plus 300 shipping.
func (fx *adminOrderServiceFixtures) seedOrder(t *testing.T, customer *entity.User, product *entity.Product, qty int, price string) *entity.Order {
	t.Helper()

	order := &entity.Order{
		ID:             uuid.New(),
		OrderNumber:    fmt.Sprintf("ORD-1700000000000-%03d", len(fx.store.orders)+1),
		UserID:         customer.ID,
		Status:         entity.OrderStatusPending,
		ShippingAmount: money("300"),
	}
	order.Items = []*entity.OrderItem{entity.NewOrderItem(order.ID, product.ID, qty, money(price))}
	order.RecalculateTotals()

	address := testAddress()
	address.ID = uuid.New()
	address.OrderID = order.ID
	order.ShippingAddress = address

	require.NoError(t, fx.store.NewOrderRepository().Create(context.Background(), order))

	return order
}

func TestAdminOrderService_AddItem_KeepsShippingInTotal(t *testing.T) {
	fx := createTestAdminOrderService(t)
	customer := fx.store.seedUser("c@example.com")
	existing := fx.store.seedProduct("Teapot", "100")
	extra := fx.store.seedProduct("Coaster", "80")
	order := fx.seedOrder(t, customer, existing, 2, "100")
	require.True(t, order.TotalAmount.Equal(money("500")))

	updated, err := fx.service.AddItem(context.Background(), order.ID, &usecase.AddOrderItemInput{
		ProductID:   extra.ID,
		Quantity:    1,
		CustomPrice: ptr(money("50")),
	})
	require.NoError(t, err)

	assert.True(t, updated.Subtotal.Equal(money("250")), updated.Subtotal.String())
	assert.True(t, updated.TotalAmount.Equal(money("550")), updated.TotalAmount.String())
	assert.Len(t, updated.Items, 2)

	stored := fx.store.orders[order.ID]
	assert.True(t, stored.TotalAmount.Equal(money("550")))
}

func TestAdminOrderService_RemoveItem_LastItemLeavesShipping(t *testing.T) {
	fx := createTestAdminOrderService(t)
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	order := fx.seedOrder(t, customer, product, 2, "100")

	updated, err := fx.service.RemoveItem(context.Background(), order.ID, order.Items[0].ID)
	require.NoError(t, err)

	assert.Empty(t, updated.Items)
	assert.True(t, updated.Subtotal.IsZero())
	assert.True(t, updated.TotalAmount.Equal(money("300")), updated.TotalAmount.String())
}

func TestAdminOrderService_RemoveItem_Unknown(t *testing.T) {
	fx := createTestAdminOrderService(t)
	ctx := context.Background()
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	order := fx.seedOrder(t, customer, product, 1, "100")
	other := fx.seedOrder(t, customer, product, 1, "100")

	_, err := fx.service.RemoveItem(ctx, order.ID, uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrOrderItemNotFound)

	_, err = fx.service.RemoveItem(ctx, order.ID, other.Items[0].ID)
	assert.ErrorIs(t, err, domainerrors.ErrOrderItemNotFound)

	_, err = fx.service.RemoveItem(ctx, uuid.New(), order.Items[0].ID)
	assert.ErrorIs(t, err, domainerrors.ErrOrderNotFound)
}

func TestAdminOrderService_AddItem_MergesExistingLine(t *testing.T) {
	fx := createTestAdminOrderService(t)
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100", func(p *entity.Product) { p.SalePrice = ptr(money("90")) })
	order := fx.seedOrder(t, customer, product, 2, "100")

	updated, err := fx.service.AddItem(context.Background(), order.ID, &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)

	line := updated.Items[0]
	assert.Equal(t, 3, line.Quantity)
	assert.True(t, line.Price.Equal(money("90")), "merged line is repriced at the current effective price")
	assert.True(t, line.Total.Equal(money("270")), line.Total.String())
	assert.True(t, updated.TotalAmount.Equal(money("570")), updated.TotalAmount.String())
}

func TestAdminOrderService_AddItem_Rejections(t *testing.T) {
	fx := createTestAdminOrderService(t)
	ctx := context.Background()
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	order := fx.seedOrder(t, customer, product, 1, "100")

	_, err := fx.service.AddItem(ctx, order.ID, &usecase.AddOrderItemInput{ProductID: product.ID})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = fx.service.AddItem(ctx, order.ID, &usecase.AddOrderItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.ErrorIs(t, err, domainerrors.ErrProductNotFound)

	_, err = fx.service.AddItem(ctx, uuid.New(), &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: 1})
	assert.ErrorIs(t, err, domainerrors.ErrOrderNotFound)

	assert.Len(t, fx.store.orderItems, 1)
}

func TestAdminOrderService_AddItem_RejectsUnstorableAmounts(t *testing.T) {
	fx := createTestAdminOrderService(t)
	ctx := context.Background()
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	pricey := fx.store.seedProduct("Chandelier", "9999999999.99")
	order := fx.seedOrder(t, customer, product, 1, "100")

	tests := []struct {
		name  string
		input *usecase.AddOrderItemInput
	}{
		{"sub-cent custom price", &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: 3, CustomPrice: ptr(money("33.333"))}},
		{"custom price above the column range", &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: 1, CustomPrice: ptr(money("12345678901"))}},
		{"quantity above the line limit", &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: entity.MaxItemQuantity + 1}},
		{"merged quantity above the line limit", &usecase.AddOrderItemInput{ProductID: product.ID, Quantity: entity.MaxItemQuantity}},
		{"line total overflows", &usecase.AddOrderItemInput{ProductID: pricey.ID, Quantity: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.AddItem(ctx, order.ID, tt.input)
			assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

			assert.Len(t, fx.store.orderItems, 1)
			stored := fx.store.orders[order.ID]
			assert.True(t, stored.TotalAmount.Equal(money("400")), stored.TotalAmount.String())
		})
	}
}

func TestAdminOrderService_UpdateOrder_StatusMachine(t *testing.T) {
	tests := []struct {
		name    string
		from    entity.OrderStatus
		to      entity.OrderStatus
		wantErr error
		publish bool
	}{
		{name: "forward step", from: entity.OrderStatusPending, to: entity.OrderStatusProcessing, publish: true},
		{name: "forward skip", from: entity.OrderStatusPending, to: entity.OrderStatusShipped, publish: true},
		{name: "cancel in flight", from: entity.OrderStatusShipped, to: entity.OrderStatusCancelled, publish: true},
		{name: "same status", from: entity.OrderStatusProcessing, to: entity.OrderStatusProcessing},
		{name: "backwards", from: entity.OrderStatusShipped, to: entity.OrderStatusPending, wantErr: domainerrors.ErrInvalidStatusTransition},
		{name: "from delivered", from: entity.OrderStatusDelivered, to: entity.OrderStatusCancelled, wantErr: domainerrors.ErrInvalidStatusTransition},
		{name: "unknown status", from: entity.OrderStatusPending, to: "LOST", wantErr: domainerrors.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := createTestAdminOrderService(t)
			customer := fx.store.seedUser("c@example.com")
			product := fx.store.seedProduct("Teapot", "100")
			order := fx.seedOrder(t, customer, product, 1, "100")

			stored := fx.store.orders[order.ID]
			stored.Status = tt.from
			fx.store.orders[order.ID] = stored

			if tt.publish {
				fx.publisher.On("PublishOrderEvent", mock.Anything, mock.MatchedBy(func(e *entity.OrderEvent) bool {
					return e.Type == entity.OrderEventStatusChanged && e.PreviousStatus == tt.from && e.Status == tt.to
				})).Return(nil).Once()
			}

			updated, err := fx.service.UpdateOrder(context.Background(), order.ID, &usecase.UpdateOrderInput{Status: ptr(tt.to)})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, fx.store.orders[order.ID].Status)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.to, updated.Status)
			}

			fx.publisher.AssertExpectations(t)
			if !tt.publish {
				fx.publisher.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAdminOrderService_UpdateOrder_WritesThroughDetails(t *testing.T) {
	fx := createTestAdminOrderService(t)
	customer := fx.store.seedUser("old@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	order := fx.seedOrder(t, customer, product, 1, "100")

	newAddress := testAddress()
	newAddress.City = "Kaohsiung"

	input := &usecase.UpdateOrderInput{
		TrackingNumber: ptr(" TW123 "),
		Notes:          ptr("leave at door"),
		Customer: &entity.CustomerDetails{
			Name:  ptr("Chen Wei"),
			Email: ptr(" New@Example.com "),
		},
		ShippingAddress: newAddress,
	}

	updated, err := fx.service.UpdateOrder(context.Background(), order.ID, input)
	require.NoError(t, err)
	assert.Equal(t, " New@Example.com ", *input.Customer.Email, "input is left untouched")

	assert.Equal(t, "TW123", updated.TrackingNumber)
	assert.Equal(t, "leave at door", updated.Notes)
	require.NotNil(t, updated.ShippingAddress)
	assert.Equal(t, "Kaohsiung", updated.ShippingAddress.City)
	assert.Equal(t, order.ShippingAddress.ID, updated.ShippingAddress.ID, "address is updated in place")

	require.NotNil(t, updated.Customer)
	assert.Equal(t, "Chen Wei", updated.Customer.Name)
	assert.Equal(t, "new@example.com", fx.store.users[customer.ID].Email)

	fx.publisher.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
}

func TestAdminOrderService_UpdateOrder_RollsBackOnEmailClash(t *testing.T) {
	fx := createTestAdminOrderService(t)
	customer := fx.store.seedUser("mine@example.com")
	fx.store.seedUser("taken@example.com")
	product := fx.store.seedProduct("Teapot", "100")
	order := fx.seedOrder(t, customer, product, 1, "100")

	_, err := fx.service.UpdateOrder(context.Background(), order.ID, &usecase.UpdateOrderInput{
		Status:   ptr(entity.OrderStatusProcessing),
		Customer: &entity.CustomerDetails{Email: ptr("taken@example.com")},
	})
	assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)

	assert.Equal(t, entity.OrderStatusPending, fx.store.orders[order.ID].Status)
	assert.Equal(t, "mine@example.com", fx.store.users[customer.ID].Email)
	fx.publisher.AssertNotCalled(t, "PublishOrderEvent", mock.Anything, mock.Anything)
}

func TestAdminOrderService_ListOrders(t *testing.T) {
	fx := createTestAdminOrderService(t)
	ctx := context.Background()
	customer := fx.store.seedUser("c@example.com")
	product := fx.store.seedProduct("Teapot", "100")

	first := fx.seedOrder(t, customer, product, 1, "100")
	second := fx.seedOrder(t, customer, product, 1, "100")
	stored := fx.store.orders[second.ID]
	stored.Status = entity.OrderStatusShipped
	fx.store.orders[second.ID] = stored

	all, err := fx.service.ListOrders(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 20, all.Limit)

	shipped, err := fx.service.ListOrders(ctx, &usecase.AdminListOrdersInput{Status: entity.OrderStatusShipped})
	require.NoError(t, err)
	require.Len(t, shipped.Items, 1)
	assert.Equal(t, second.ID, shipped.Items[0].ID)

	byNumber, err := fx.service.ListOrders(ctx, &usecase.AdminListOrdersInput{Search: first.OrderNumber})
	require.NoError(t, err)
	require.Len(t, byNumber.Items, 1)
	assert.Equal(t, first.ID, byNumber.Items[0].ID)

	_, err = fx.service.ListOrders(ctx, &usecase.AdminListOrdersInput{Status: "LOST"})
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}
