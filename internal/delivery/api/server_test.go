package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/config"
	apimiddleware "storefront/internal/delivery/api/middleware"
	"storefront/internal/delivery/api/router"
	"storefront/internal/delivery/api/router/handler"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/service"
	"storefront/internal/infra/auth"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCartUsecase struct {
	mock.Mock
}

func (m *mockCartUsecase) AddItem(ctx context.Context, userID uuid.UUID, input *usecase.AddToCartInput) (*entity.CartItem, error) {
	args := m.Called(ctx, userID, input)
	item, _ := args.Get(0).(*entity.CartItem)

	return item, args.Error(1)
}

func (m *mockCartUsecase) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*entity.CartItem, error) {
	args := m.Called(ctx, userID, itemID, quantity)
	item, _ := args.Get(0).(*entity.CartItem)

	return item, args.Error(1)
}

func (m *mockCartUsecase) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return m.Called(ctx, userID, itemID).Error(0)
}

func (m *mockCartUsecase) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockCartUsecase) ListItems(ctx context.Context, userID uuid.UUID) ([]*entity.CartItem, error) {
	args := m.Called(ctx, userID)
	items, _ := args.Get(0).([]*entity.CartItem)

	return items, args.Error(1)
}

type mockOrderUsecase struct {
	mock.Mock
}

func (m *mockOrderUsecase) CreateOrder(ctx context.Context, userID uuid.UUID, input *usecase.CreateOrderInput) (*entity.Order, error) {
	args := m.Called(ctx, userID, input)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

func (m *mockOrderUsecase) ListOrders(ctx context.Context, userID uuid.UUID, page usecase.PageRequest) (*usecase.Page[*entity.Order], error) {
	args := m.Called(ctx, userID, page)
	orders, _ := args.Get(0).(*usecase.Page[*entity.Order])

	return orders, args.Error(1)
}

func (m *mockOrderUsecase) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, userID, orderID)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

func (m *mockOrderUsecase) GetOrderQR(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, userID, orderID)
	png, _ := args.Get(0).([]byte)

	return png, args.Error(1)
}

type mockAdminOrderUsecase struct {
	mock.Mock
}

func (m *mockAdminOrderUsecase) ListOrders(ctx context.Context, input *usecase.AdminListOrdersInput) (*usecase.Page[*entity.Order], error) {
	args := m.Called(ctx, input)
	orders, _ := args.Get(0).(*usecase.Page[*entity.Order])

	return orders, args.Error(1)
}

func (m *mockAdminOrderUsecase) GetOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

func (m *mockAdminOrderUsecase) UpdateOrder(ctx context.Context, orderID uuid.UUID, input *usecase.UpdateOrderInput) (*entity.Order, error) {
	args := m.Called(ctx, orderID, input)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

func (m *mockAdminOrderUsecase) AddItem(ctx context.Context, orderID uuid.UUID, input *usecase.AddOrderItemInput) (*entity.Order, error) {
	args := m.Called(ctx, orderID, input)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

func (m *mockAdminOrderUsecase) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*entity.Order, error) {
	args := m.Called(ctx, orderID, itemID)
	order, _ := args.Get(0).(*entity.Order)

	return order, args.Error(1)
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Details string          `json:"details"`
	Meta    struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type apiFixtures struct {
	echo     *echo.Echo
	tokenSvc service.TokenService
	cartUC   *mockCartUsecase
	orderUC  *mockOrderUsecase
	adminUC  *mockAdminOrderUsecase
}

func createTestAPI(t *testing.T) *apiFixtures {
	t.Helper()

	cfg := &config.Config{}
	cfg.HTTP.MaxRequestBodySize = "1MB"
	cfg.SecretKey = config.SecretKeyConfig{Access: "access-secret", Refresh: "refresh-secret"}

	tokenSvc, err := auth.NewJWTService(cfg)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixtures := &apiFixtures{
		tokenSvc: tokenSvc,
		cartUC:   &mockCartUsecase{},
		orderUC:  &mockOrderUsecase{},
		adminUC:  &mockAdminOrderUsecase{},
	}

	fixtures.echo = newEcho(cfg, logger, router.RouterParams{
		AuthHandler:       handler.NewAuthHandler(handler.AuthHandlerParams{TokenSvc: tokenSvc}),
		CatalogHandler:    handler.NewCatalogHandler(handler.CatalogHandlerParams{}),
		CartHandler:       handler.NewCartHandler(handler.CartHandlerParams{CartUC: fixtures.cartUC}),
		OrderHandler:      handler.NewOrderHandler(handler.OrderHandlerParams{OrderUC: fixtures.orderUC}),
		AdminOrderHandler: handler.NewAdminOrderHandler(handler.AdminOrderHandlerParams{AdminOrderUC: fixtures.adminUC}),
		DeviceHandler:     handler.NewDeviceHandler(handler.DeviceHandlerParams{Logger: logger}),
		AuthMiddleware:    apimiddleware.NewAuthMiddleware(tokenSvc),
	})

	t.Cleanup(func() {
		fixtures.cartUC.AssertExpectations(t)
		fixtures.orderUC.AssertExpectations(t)
		fixtures.adminUC.AssertExpectations(t)
	})

	return fixtures
}

func (f *apiFixtures) token(t *testing.T, userID uuid.UUID, roles ...entity.Role) string {
	t.Helper()

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}

	access, _, err := f.tokenSvc.GenerateTokens(userID, names)
	require.NoError(t, err)

	return access
}

func (f *apiFixtures) do(t *testing.T, method, target, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(deliverycontext.HeaderXRequestID, "req-test")
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.echo.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}

	return rec, env
}

func TestAPI_Health(t *testing.T) {
	f := createTestAPI(t)

	rec, env := f.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-test", rec.Header().Get(deliverycontext.HeaderXRequestID))
	assert.Equal(t, "req-test", env.Meta.RequestID)
}

func TestAPI_Authentication(t *testing.T) {
	f := createTestAPI(t)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{name: "missing header", wantCode: "AUTHENTICATION_REQUIRED"},
		{name: "not bearer", header: "Basic abc", wantCode: "INVALID_TOKEN"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantCode: "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/cart", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			f.echo.ServeHTTP(rec, req)

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			require.NotEmpty(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Code)
			assert.Empty(t, env.Details)
			assert.NotEmpty(t, env.Meta.RequestID)
		})
	}
}

func TestAPI_RefreshTokenRejectedAsAccessToken(t *testing.T) {
	f := createTestAPI(t)

	_, refresh, err := f.tokenSvc.GenerateTokens(uuid.New(), []string{string(entity.RoleCustomer)})
	require.NoError(t, err)

	rec, env := f.do(t, http.MethodGet, "/cart", refresh, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", env.Code)
}

func TestAPI_AdminRoutesRequireAdminRole(t *testing.T) {
	f := createTestAPI(t)

	customer := f.token(t, uuid.New(), entity.RoleCustomer)
	rec, env := f.do(t, http.MethodGet, "/admin/orders", customer, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	f.adminUC.On("ListOrders", mock.Anything, &usecase.AdminListOrdersInput{
		Status:      entity.OrderStatusShipped,
		Search:      "alice",
		PageRequest: usecase.PageRequest{Page: 2, Limit: 5},
	}).Return(usecase.NewPage([]*entity.Order{}, 2, 5, 6), nil).Once()

	manager := f.token(t, uuid.New(), entity.RoleManagement)
	rec, env = f.do(t, http.MethodGet, "/admin/orders?status=shipped&q=alice&page=2&limit=5", manager, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.Error)

	var page usecase.Page[*entity.Order]
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Equal(t, 2, page.TotalPages)
}

func TestAPI_AddCartItem(t *testing.T) {
	f := createTestAPI(t)
	userID := uuid.New()
	productID := uuid.New()
	token := f.token(t, userID, entity.RoleCustomer)

	t.Run("validation failure carries details", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/cart", token, `{"product_id":"`+productID.String()+`","quantity":0}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotEmpty(t, env.Error)
		assert.Equal(t, "VALIDATION_FAILED", env.Code)
		assert.Contains(t, env.Details, "quantity")
		assert.Equal(t, "req-test", env.Meta.RequestID)
	})

	t.Run("created", func(t *testing.T) {
		item := &entity.CartItem{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: 3}
		f.cartUC.On("AddItem", mock.Anything, userID, &usecase.AddToCartInput{ProductID: productID, Quantity: 3}).
			Return(item, nil).Once()

		rec, env := f.do(t, http.MethodPost, "/cart", token, `{"product_id":"`+productID.String()+`","quantity":3}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Contains(t, string(env.Data), item.ID.String())
	})

	t.Run("domain error keeps its status and details", func(t *testing.T) {
		f.cartUC.On("AddItem", mock.Anything, userID, mock.Anything).
			Return(nil, domainerrors.ErrInsufficientStock.WithDetails("only 2 left")).Once()

		rec, env := f.do(t, http.MethodPost, "/cart", token, `{"product_id":"`+productID.String()+`","quantity":9}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", env.Code)
		assert.Equal(t, "only 2 left", env.Details)

		var raw map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		assert.Equal(t, domainerrors.ErrInsufficientStock.Message(), raw["error"], "error is the message string")
		assert.Equal(t, "only 2 left", raw["details"])
	})

	t.Run("quantity above the line limit", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPost, "/cart", token, `{"product_id":"`+productID.String()+`","quantity":10001}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", env.Code)
		assert.Contains(t, env.Details, "quantity")
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		f.cartUC.On("AddItem", mock.Anything, userID, mock.Anything).
			Return(nil, errors.New("connection reset")).Once()

		rec, env := f.do(t, http.MethodPost, "/cart", token, `{"product_id":"`+productID.String()+`","quantity":1}`)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "INTERNAL_ERROR", env.Code)
		assert.NotContains(t, rec.Body.String(), "connection reset")
	})
}

func TestAPI_OrderRoutes(t *testing.T) {
	f := createTestAPI(t)
	userID := uuid.New()
	orderID := uuid.New()
	token := f.token(t, userID, entity.RoleCustomer)

	t.Run("malformed id", func(t *testing.T) {
		rec, env := f.do(t, http.MethodGet, "/orders/not-a-uuid", token, "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", env.Code)
	})

	t.Run("checkout requires items", func(t *testing.T) {
		body := `{"shipping_address":{"full_name":"Ann","address_line1":"1 Main St","city":"Austin","postal_code":"78701","country":"US"},"items":[]}`
		rec, env := f.do(t, http.MethodPost, "/orders", token, body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Details, "items")
	})

	t.Run("qr code", func(t *testing.T) {
		png := []byte{0x89, 'P', 'N', 'G'}
		f.orderUC.On("GetOrderQR", mock.Anything, userID, orderID).Return(png, nil).Once()

		rec, _ := f.do(t, http.MethodGet, "/orders/"+orderID.String()+"/qr", token, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, png, rec.Body.Bytes())
	})

	t.Run("foreign order", func(t *testing.T) {
		f.orderUC.On("GetOrder", mock.Anything, userID, orderID).Return(nil, domainerrors.ErrOrderNotFound).Once()

		rec, env := f.do(t, http.MethodGet, "/orders/"+orderID.String(), token, "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "ORDER_NOT_FOUND", env.Code)
	})
}

func TestAPI_AdminUpdateOrder(t *testing.T) {
	f := createTestAPI(t)
	admin := f.token(t, uuid.New(), entity.RoleSuperAdmin)
	orderID := uuid.New()
	shipped := entity.OrderStatusShipped

	t.Run("id in body", func(t *testing.T) {
		f.adminUC.On("UpdateOrder", mock.Anything, orderID, mock.MatchedBy(func(input *usecase.UpdateOrderInput) bool {
			return input.Status != nil && *input.Status == shipped
		})).Return(&entity.Order{ID: orderID, Status: shipped}, nil).Once()

		rec, _ := f.do(t, http.MethodPatch, "/admin/orders", admin, `{"id":"`+orderID.String()+`","status":"SHIPPED"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing id", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPatch, "/admin/orders", admin, `{"status":"SHIPPED"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_FAILED", env.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec, env := f.do(t, http.MethodPatch, "/admin/orders/"+orderID.String(), admin, `{"status":"LOST"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, env.Details, "status")
	})

	t.Run("illegal transition", func(t *testing.T) {
		f.adminUC.On("UpdateOrder", mock.Anything, orderID, mock.Anything).
			Return(nil, domainerrors.ErrInvalidStatusTransition).Once()

		rec, env := f.do(t, http.MethodPatch, "/admin/orders/"+orderID.String(), admin, `{"status":"PENDING"}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "INVALID_STATUS_TRANSITION", env.Code)
	})
}
