package impl

import (
	"context"
	"log/slog"
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
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// maxOrderNumberAttempts bounds checkout retries after an order number collision.
const maxOrderNumberAttempts = 3

// orderService implements the OrderUsecase interface.
type orderService struct {
	txManager      repository.TransactionManager
	orderRepo      repository.OrderRepository
	numbers        service.OrderNumberGenerator
	publisher      service.EventPublisher
	qrService      service.QRCodeService
	shippingAmount decimal.Decimal
	catalogConfig  *config.CatalogConfig
	logger         *slog.Logger
}

// OrderServiceParams holds dependencies for OrderService, injected by Fx.
type OrderServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	OrderRepo repository.OrderRepository
	Numbers   service.OrderNumberGenerator
	Publisher service.EventPublisher
	QRService service.QRCodeService
	Config    *config.Config
	Logger    *slog.Logger
}

// NewOrderService creates a new order service instance.
// It fails when the configured shipping amount is not a valid decimal.
func NewOrderService(params OrderServiceParams) (usecase.OrderUsecase, error) {
	shipping, err := shippingAmountFromConfig(params.Config)
	if err != nil {
		return nil, err
	}

	return &orderService{
		txManager:      params.TxManager,
		orderRepo:      params.OrderRepo,
		numbers:        params.Numbers,
		publisher:      params.Publisher,
		qrService:      params.QRService,
		shippingAmount: shipping,
		catalogConfig:  params.Config.Catalog,
		logger:         params.Logger,
	}, nil
}

func shippingAmountFromConfig(cfg *config.Config) (decimal.Decimal, error) {
	if cfg == nil || cfg.Order == nil {
		return decimal.Zero, errors.New("order config is required")
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(cfg.Order.ShippingAmount))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid order.shippingAmount %q", cfg.Order.ShippingAmount)
	}

	if amount.IsNegative() {
		return decimal.Zero, errors.Errorf("order.shippingAmount must not be negative, got %s", amount)
	}

	if problem := moneyProblem("order.shippingAmount", amount); problem != "" {
		return decimal.Zero, errors.New(problem)
	}

	return amount, nil
}

func (srv *orderService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// CreateOrder turns the submitted cart lines into a PENDING order priced from the live catalog.
// The order, its items and address are written and the cart is cleared in one transaction.
func (srv *orderService) CreateOrder(ctx context.Context, userID uuid.UUID, input *usecase.CreateOrderInput) (*entity.Order, error) {
	lines, err := validateCheckout(input)
	if err != nil {
		return nil, err
	}

	var order *entity.Order
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order, err = srv.placeOrder(ctx, userID, input, lines)
		if !errors.Is(err, repository.ErrDuplicateOrderNumber) {
			break
		}

		srv.log(ctx).Warn("Order number collision, retrying", slog.Int("attempt", attempt))
	}

	if errors.Is(err, repository.ErrDuplicateOrderNumber) {
		return nil, domainerrors.ErrConflict.WithDetails("could not allocate a unique order number")
	}
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Order created",
		slog.String("order_id", order.ID.String()),
		slog.String("order_number", order.OrderNumber),
		slog.String("total_amount", order.TotalAmount.String()),
	)

	publishOrderEvent(ctx, srv.log(ctx), srv.publisher, entity.NewOrderEvent(entity.OrderEventCreated, order, ""))

	return order, nil
}

func (srv *orderService) placeOrder(ctx context.Context, userID uuid.UUID, input *usecase.CreateOrderInput, lines []usecase.CheckoutItem) (*entity.Order, error) {
	var created *entity.Order

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		productRepo := repoFactory.NewProductRepository()
		orderRepo := repoFactory.NewOrderRepository()

		order := &entity.Order{
			ID:             uuid.New(),
			OrderNumber:    srv.numbers.Next(),
			UserID:         userID,
			Status:         entity.OrderStatusPending,
			ShippingAmount: srv.shippingAmount,
			Notes:          strings.TrimSpace(input.Notes),
		}

		for _, line := range lines {
			product, err := findProduct(ctx, productRepo, line.ProductID)
			if err != nil {
				return err
			}

			// Client prices are ignored; the live effective price is the snapshot.
			order.Items = append(order.Items, entity.NewOrderItem(order.ID, product.ID, line.Quantity, product.EffectivePrice()))
		}

		order.RecalculateTotals()
		if err := checkOrderAmounts(order); err != nil {
			return err
		}

		address := *input.ShippingAddress
		address.ID = uuid.New()
		address.OrderID = order.ID
		order.ShippingAddress = &address

		if err := orderRepo.Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicateOrderNumber) {
				return err
			}

			return errors.Wrap(err, "failed to create order")
		}

		if err := repoFactory.NewCartRepository().DeleteByUser(ctx, userID); err != nil {
			return errors.Wrap(err, "failed to clear cart after checkout")
		}

		stored, err := orderRepo.FindByID(ctx, order.ID)
		if err != nil {
			return errors.Wrap(err, "failed to reload created order")
		}

		created = stored

		return nil
	})

	return created, err
}

// validateCheckout checks the request and merges repeated products into one line.
func validateCheckout(input *usecase.CreateOrderInput) ([]usecase.CheckoutItem, error) {
	if input == nil || input.ShippingAddress == nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("shipping address is required")
	}

	if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
		return nil, domainerrors.ErrValidationFailed.WithDetails("shipping address is missing: " + strings.Join(missing, ", "))
	}

	if len(input.Items) == 0 {
		return nil, domainerrors.ErrValidationFailed.WithDetails("order must contain at least one item")
	}

	merged := make([]usecase.CheckoutItem, 0, len(input.Items))
	index := make(map[uuid.UUID]int, len(input.Items))

	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, domainerrors.ErrValidationFailed.WithDetails("product_id is required for every item")
		}
		if err := checkQuantity(item.Quantity); err != nil {
			return nil, err
		}

		if i, ok := index[item.ProductID]; ok {
			// Both operands are bounded, so the sum cannot wrap.
			if err := checkQuantity(merged[i].Quantity + item.Quantity); err != nil {
				return nil, err
			}
			merged[i].Quantity += item.Quantity

			continue
		}

		index[item.ProductID] = len(merged)
		merged = append(merged, usecase.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	return merged, nil
}

// ListOrders returns the caller's orders, newest first.
func (srv *orderService) ListOrders(ctx context.Context, userID uuid.UUID, req usecase.PageRequest) (*usecase.Page[*entity.Order], error) {
	page, limit := normalizePage(req, srv.catalogConfig)

	orders, total, err := srv.orderRepo.List(ctx, repository.OrderQuery{
		UserID: &userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list orders")
	}

	return usecase.NewPage(orders, page, limit, total), nil
}

// GetOrder returns the order only when the caller owns it.
func (srv *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*entity.Order, error) {
	order, err := srv.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapOrderError(err)
	}

	// Other users' orders are indistinguishable from missing ones.
	if order.UserID != userID {
		return nil, domainerrors.ErrOrderNotFound
	}

	return order, nil
}

// GetOrderQR renders the order number of an owned order as a QR code.
func (srv *orderService) GetOrderQR(ctx context.Context, userID, orderID uuid.UUID) ([]byte, error) {
	order, err := srv.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	png, err := srv.qrService.GenerateOrderQR(order.OrderNumber)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate order QR code")
	}

	return png, nil
}

func mapOrderError(err error) error {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		return domainerrors.ErrOrderNotFound
	case errors.Is(err, repository.ErrOrderItemNotFound):
		return domainerrors.ErrOrderItemNotFound
	default:
		return errors.Wrap(err, "order repository")
	}
}

// publishOrderEvent publishes after commit. Failures are logged and never fail the caller.
func publishOrderEvent(ctx context.Context, logger *slog.Logger, publisher service.EventPublisher, event *entity.OrderEvent) {
	if publisher == nil {
		return
	}

	if err := publisher.PublishOrderEvent(ctx, event); err != nil {
		logger.Warn("Failed to publish order event",
			slog.String("type", string(event.Type)),
			slog.String("order_id", event.OrderID.String()),
			slog.Any("error", err),
		)
	}
}
