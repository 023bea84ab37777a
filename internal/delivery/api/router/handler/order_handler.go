package handler

import (
	"net/http"

	"storefront/internal/delivery/api/response"
	"storefront/internal/domain/entity"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// OrderHandlerParams holds dependencies for OrderHandler, injected by Fx.
type OrderHandlerParams struct {
	fx.In

	OrderUC usecase.OrderUsecase
}

// OrderHandler serves checkout and the caller's order history.
type OrderHandler struct {
	orderUC usecase.OrderUsecase
}

// NewOrderHandler is the constructor for OrderHandler.
func NewOrderHandler(params OrderHandlerParams) *OrderHandler {
	return &OrderHandler{orderUC: params.OrderUC}
}

// ShippingAddressRequest is the address payload of checkout and admin order updates.
type ShippingAddressRequest struct {
	FullName     string `json:"full_name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"max=30"`
	AddressLine1 string `json:"address_line1" validate:"required,max=255"`
	AddressLine2 string `json:"address_line2" validate:"max=255"`
	City         string `json:"city" validate:"required,max=100"`
	State        string `json:"state" validate:"max=100"`
	PostalCode   string `json:"postal_code" validate:"required,max=20"`
	Country      string `json:"country" validate:"required,len=2"`
}

func (r *ShippingAddressRequest) toEntity() *entity.ShippingAddress {
	if r == nil {
		return nil
	}

	return &entity.ShippingAddress{
		FullName:     r.FullName,
		Phone:        r.Phone,
		AddressLine1: r.AddressLine1,
		AddressLine2: r.AddressLine2,
		City:         r.City,
		State:        r.State,
		PostalCode:   r.PostalCode,
		Country:      r.Country,
	}
}

type CheckoutItemRequest struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"required,min=1,max=10000"`
	Price     *decimal.Decimal `json:"price"` // Display price; ignored for pricing.
}

type CreateOrderRequest struct {
	ShippingAddress *ShippingAddressRequest `json:"shipping_address" validate:"required"`
	Notes           string                  `json:"notes" validate:"max=2000"`
	Items           []CheckoutItemRequest   `json:"items" validate:"required,min=1,dive"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	input := &usecase.CreateOrderInput{
		ShippingAddress: req.ShippingAddress.toEntity(),
		Notes:           req.Notes,
		Items:           make([]usecase.CheckoutItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, usecase.CheckoutItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	order, err := h.orderUC.CreateOrder(c.Request().Context(), userID, input)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	page, err := pageRequest(c)
	if err != nil {
		return err
	}

	orders, err := h.orderUC.ListOrders(c.Request().Context(), userID, page)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	orderID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.orderUC.GetOrder(c.Request().Context(), userID, orderID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order)
}

// GetOrderQR writes the order's QR code as image/png.
func (h *OrderHandler) GetOrderQR(c echo.Context) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}

	orderID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	png, err := h.orderUC.GetOrderQR(c.Request().Context(), userID, orderID)
	if err != nil {
		return err
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
