package impl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"storefront/config"
	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/domain/service"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// adminOrderService implements the AdminOrderUsecase interface.
// Every mutation locks the order row, recomputes totals from the stored items and
// writes them back in the same transaction.
type adminOrderService struct {
	txManager     repository.TransactionManager
	orderRepo     repository.OrderRepository
	publisher     service.EventPublisher
	catalogConfig *config.CatalogConfig
	logger        *slog.Logger
}

// AdminOrderServiceParams holds dependencies for AdminOrderService, injected by Fx.
type AdminOrderServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	OrderRepo repository.OrderRepository
	Publisher service.EventPublisher
	Config    *config.Config
	Logger    *slog.Logger
}

// NewAdminOrderService creates a new admin order service instance
func NewAdminOrderService(params AdminOrderServiceParams) usecase.AdminOrderUsecase {
	return &adminOrderService{
		txManager:     params.TxManager,
		orderRepo:     params.OrderRepo,
		publisher:     params.Publisher,
		catalogConfig: params.Config.Catalog,
		logger:        params.Logger,
	}
}

func (srv *adminOrderService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListOrders returns a page of all orders.
func (srv *adminOrderService) ListOrders(ctx context.Context, input *usecase.AdminListOrdersInput) (*usecase.Page[*entity.Order], error) {
	if input == nil {
		input = &usecase.AdminListOrdersInput{}
	}

	if input.Status != "" && !input.Status.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails(fmt.Sprintf("unknown order status %q", input.Status))
	}

	page, limit := normalizePage(input.PageRequest, srv.catalogConfig)

	orders, total, err := srv.orderRepo.List(ctx, repository.OrderQuery{
		Status: input.Status,
		Search: strings.TrimSpace(input.Search),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return usecase.NewPage(orders, page, limit, total), nil
}

// GetOrder returns any order.
func (srv *adminOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}

	return order, nil
}

// UpdateOrder applies a partial update. Status changes must follow the order status machine.
func (srv *adminOrderService) UpdateOrder(ctx context.Context, orderID uuid.UUID, input *usecase.UpdateOrderInput) (*entity.Order, error) {
	if input == nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("update body is required")
	}

	if input.Status != nil && !input.Status.IsValid() {
		return nil, domainerrors.ErrValidationFailed.WithDetails(fmt.Sprintf("unknown order status %q", *input.Status))
	}

	if input.ShippingAddress != nil {
		if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
			return nil, domainerrors.ErrValidationFailed.WithDetails("shipping address is missing: " + strings.Join(missing, ", "))
		}
	}

	var (
		updated        *entity.Order
		previousStatus entity.OrderStatus
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}

		previousStatus = order.Status

		if input.Status != nil {
			if !order.Status.CanTransitionTo(*input.Status) {
				return domainerrors.ErrInvalidStatusTransition.WithDetails(
					fmt.Sprintf("cannot move order from %s to %s", order.Status, *input.Status),
				)
			}
			order.Status = *input.Status
		}

		if input.TrackingNumber != nil {
			order.TrackingNumber = strings.TrimSpace(*input.TrackingNumber)
		}

		if input.Notes != nil {
			order.Notes = strings.TrimSpace(*input.Notes)
		}

		if err := orderRepo.Update(ctx, order); err != nil {
			return errors.Wrap(err, "failed to update order")
		}

		if input.Customer != nil {
			if err := updateCustomer(ctx, repoFactory.NewUserRepository(), order.UserID, input.Customer); err != nil {
				return err
			}
		}

		if input.ShippingAddress != nil {
			address := *input.ShippingAddress
			address.OrderID = order.ID
			if err := orderRepo.SaveShippingAddress(ctx, &address); err != nil {
				return errors.Wrap(err, "failed to save shipping address")
			}
		}

		updated, err = orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return errors.Wrap(err, "failed to reload order")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != previousStatus {
		srv.log(ctx).Info("Order status changed",
			slog.String("order_id", orderID.String()),
			slog.String("from", string(previousStatus)),
			slog.String("to", string(updated.Status)),
		)

		publishOrderEvent(ctx, srv.log(ctx), srv.publisher,
			entity.NewOrderEvent(entity.OrderEventStatusChanged, updated, previousStatus))
	}

	return updated, nil
}

// updateCustomer writes the changed customer fields through to the owning user.
func updateCustomer(ctx context.Context, userRepo repository.UserRepository, userID uuid.UUID, details *entity.CustomerDetails) error {
	user, err := userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return domainerrors.ErrUserNotFound
		}

		return errors.Wrap(err, "failed to find order customer")
	}

	normalized := *details
	if details.Email != nil {
		email := normalizeEmail(*details.Email)
		normalized.Email = &email
	}

	if !normalized.Apply(user) {
		return nil
	}

	if err := userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return domainerrors.ErrUserAlreadyExists
		}

		return errors.Wrap(err, "failed to update order customer")
	}

	return nil
}

// AddItem adds a product line, or merges into the existing line for that product
// and reprices the whole line at the new unit price.
func (srv *adminOrderService) AddItem(ctx context.Context, orderID uuid.UUID, input *usecase.AddOrderItemInput) (*entity.Order, error) {
	if input == nil || input.ProductID == uuid.Nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("product_id is required")
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	if input.CustomPrice != nil {
		if problem := moneyProblem("custom_price", *input.CustomPrice); problem != "" {
			return nil, domainerrors.ErrValidationFailed.WithDetails(problem)
		}
	}

	var updated *entity.Order
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}

		product, err := findProduct(ctx, repoFactory.NewProductRepository(), input.ProductID)
		if err != nil {
			return err
		}

		price := product.EffectivePrice()
		if input.CustomPrice != nil && input.CustomPrice.IsPositive() {
			price = *input.CustomPrice
		}

		item := order.FindItemByProduct(product.ID)
		isNew := item == nil
		if isNew {
			item = entity.NewOrderItem(order.ID, product.ID, input.Quantity, price)
			order.Items = append(order.Items, item)
		} else {
			if err := checkQuantity(item.Quantity + input.Quantity); err != nil {
				return err
			}
			item.Merge(input.Quantity, price)
		}

		order.RecalculateTotals()
		if err := checkOrderAmounts(order); err != nil {
			return err
		}

		if isNew {
			if err := orderRepo.CreateItem(ctx, item); err != nil {
				return errors.Wrap(err, "failed to create order item")
			}
		} else if err := orderRepo.UpdateItem(ctx, item); err != nil {
			return mapOrderError(err)
		}

		updated, err = saveTotals(ctx, orderRepo, order)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RemoveItem deletes a line of the order and recomputes the totals.
func (srv *adminOrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) (*entity.Order, error) {
	var updated *entity.Order
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		orderRepo := repoFactory.NewOrderRepository()

		order, err := orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return mapOrderError(err)
		}

		idx := slices.IndexFunc(order.Items, func(item *entity.OrderItem) bool { return item.ID == itemID })
		if idx < 0 {
			return domainerrors.ErrOrderItemNotFound
		}

		if err := orderRepo.DeleteItem(ctx, order.ID, itemID); err != nil {
			return mapOrderError(err)
		}
		order.Items = slices.Delete(order.Items, idx, idx+1)

		updated, err = saveTotals(ctx, orderRepo, order)

		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func saveTotals(ctx context.Context, orderRepo repository.OrderRepository, order *entity.Order) (*entity.Order, error) {
	order.RecalculateTotals()

	if err := orderRepo.UpdateTotals(ctx, order); err != nil {
		return nil, errors.Wrap(err, "failed to update order totals")
	}

	reloaded, err := orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to reload order")
	}

	return reloaded, nil
}
