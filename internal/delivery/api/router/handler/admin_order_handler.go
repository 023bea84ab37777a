package handler

import (
	"net/http"
	"strings"

	"storefront/internal/delivery/api/response"
	"storefront/internal/domain/entity"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// AdminOrderHandlerParams holds dependencies for AdminOrderHandler, injected by Fx.
type AdminOrderHandlerParams struct {
	fx.In

	AdminOrderUC usecase.AdminOrderUsecase
}

// AdminOrderHandler serves back-office order management.
type AdminOrderHandler struct {
	adminOrderUC usecase.AdminOrderUsecase
}

// NewAdminOrderHandler is the constructor for AdminOrderHandler.
func NewAdminOrderHandler(params AdminOrderHandlerParams) *AdminOrderHandler {
	return &AdminOrderHandler{adminOrderUC: params.AdminOrderUC}
}

type CustomerRequest struct {
	Name  *string `json:"name" validate:"omitempty,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone" validate:"omitempty,max=30"`
}

// UpdateOrderRequest is a partial update; omitted fields keep their value.
// ID is only read by PATCH /admin/orders, where the order is named in the body.
type UpdateOrderRequest struct {
	ID              uuid.UUID               `json:"id"`
	Status          *string                 `json:"status" validate:"omitempty,oneof=PENDING PROCESSING SHIPPED DELIVERED CANCELLED"`
	TrackingNumber  *string                 `json:"tracking_number" validate:"omitempty,max=100"`
	Notes           *string                 `json:"notes" validate:"omitempty,max=2000"`
	Customer        *CustomerRequest        `json:"customer"`
	ShippingAddress *ShippingAddressRequest `json:"shipping_address"`
}

func (r *UpdateOrderRequest) toInput() *usecase.UpdateOrderInput {
	input := &usecase.UpdateOrderInput{
		TrackingNumber:  r.TrackingNumber,
		Notes:           r.Notes,
		ShippingAddress: r.ShippingAddress.toEntity(),
	}

	if r.Status != nil {
		status := entity.OrderStatus(strings.ToUpper(*r.Status))
		input.Status = &status
	}

	if r.Customer != nil {
		input.Customer = &entity.CustomerDetails{
			Name:  r.Customer.Name,
			Email: r.Customer.Email,
			Phone: r.Customer.Phone,
		}
	}

	return input
}

type AddOrderItemRequest struct {
	ProductID   uuid.UUID        `json:"product_id" validate:"required"`
	Quantity    int              `json:"quantity" validate:"required,min=1,max=10000"`
	CustomPrice *decimal.Decimal `json:"custom_price"`
}

func (h *AdminOrderHandler) ListOrders(c echo.Context) error {
	page, err := pageRequest(c)
	if err != nil {
		return err
	}

	orders, err := h.adminOrderUC.ListOrders(c.Request().Context(), &usecase.AdminListOrdersInput{
		Status:      entity.OrderStatus(strings.ToUpper(c.QueryParam("status"))),
		Search:      c.QueryParam("q"),
		PageRequest: page,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, orders)
}

func (h *AdminOrderHandler) GetOrder(c echo.Context) error {
	orderID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	order, err := h.adminOrderUC.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order)
}

// UpdateOrder serves PATCH /admin/orders/:id and PATCH /admin/orders.
func (h *AdminOrderHandler) UpdateOrder(c echo.Context) error {
	var req UpdateOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	orderID := req.ID
	if c.Param("id") != "" {
		id, err := uuidParam(c, "id")
		if err != nil {
			return err
		}
		orderID = id
	}

	if orderID == uuid.Nil {
		return errMissingOrderID
	}

	order, err := h.adminOrderUC.UpdateOrder(c.Request().Context(), orderID, req.toInput())
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order)
}

func (h *AdminOrderHandler) AddItem(c echo.Context) error {
	orderID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	var req AddOrderItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	order, err := h.adminOrderUC.AddItem(c.Request().Context(), orderID, &usecase.AddOrderItemInput{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		CustomPrice: req.CustomPrice,
	})
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order)
}

func (h *AdminOrderHandler) RemoveItem(c echo.Context) error {
	orderID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	itemID, err := uuidParam(c, "itemId")
	if err != nil {
		return err
	}

	order, err := h.adminOrderUC.RemoveItem(c.Request().Context(), orderID, itemID)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, order)
}
