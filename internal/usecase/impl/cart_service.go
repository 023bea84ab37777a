package impl

import (
	"context"
	"fmt"
	"log/slog"

	deliverycontext "storefront/internal/delivery/context"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// cartService implements the CartUsecase interface.
type cartService struct {
	txManager repository.TransactionManager
	cartRepo  repository.CartRepository
	logger    *slog.Logger
}

// CartServiceParams holds dependencies for CartService, injected by Fx.
type CartServiceParams struct {
	fx.In

	TxManager repository.TransactionManager
	CartRepo  repository.CartRepository
	Logger    *slog.Logger
}

// NewCartService creates a new cart service instance
func NewCartService(params CartServiceParams) usecase.CartUsecase {
	return &cartService{
		txManager: params.TxManager,
		cartRepo:  params.CartRepo,
		logger:    params.Logger,
	}
}

func (srv *cartService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// AddItem puts a product into the cart, merging with an existing line for the same product.
// The line is locked for the duration of the check and the increment is a single upsert,
// so concurrent adds cannot lose quantity.
func (srv *cartService) AddItem(ctx context.Context, userID uuid.UUID, input *usecase.AddToCartInput) (*entity.CartItem, error) {
	if input == nil || input.ProductID == uuid.Nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails("product_id is required")
	}
	if err := checkQuantity(input.Quantity); err != nil {
		return nil, err
	}

	var added *entity.CartItem
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		product, err := findProduct(ctx, repoFactory.NewProductRepository(), input.ProductID)
		if err != nil {
			return err
		}

		if !product.IsAvailable() {
			return domainerrors.ErrProductUnavailable.WithDetails(fmt.Sprintf("product %s is %s", product.ID, product.Status))
		}

		cartRepo := repoFactory.NewCartRepository()

		existingQty := 0
		existing, err := cartRepo.FindByUserAndProductForUpdate(ctx, userID, product.ID)
		switch {
		case err == nil:
			existingQty = existing.Quantity
		case errors.Is(err, repository.ErrCartItemNotFound):
		default:
			return errors.Wrap(err, "failed to find cart line")
		}

		if err := checkQuantity(existingQty + input.Quantity); err != nil {
			return err
		}

		if !product.CanSupply(existingQty + input.Quantity) {
			return insufficientStock(product, existingQty+input.Quantity)
		}

		line, err := cartRepo.AddQuantity(ctx, userID, product.ID, input.Quantity)
		if err != nil {
			return errors.Wrap(err, "failed to add cart quantity")
		}

		// A concurrent first insert is not covered by the row lock; the stored quantity decides.
		if !product.CanSupply(line.Quantity) {
			return insufficientStock(product, line.Quantity)
		}

		line.Product = product.WithMainImageOnly()
		added = line

		return nil
	})
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("Cart item added",
		slog.String("user_id", userID.String()),
		slog.String("product_id", input.ProductID.String()),
		slog.Int("quantity", added.Quantity),
	)

	return added, nil
}

// UpdateItemQuantity sets a line to an absolute quantity after checking stock for that quantity.
func (srv *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*entity.CartItem, error) {
	if err := checkQuantity(quantity); err != nil {
		return nil, err
	}

	var updated *entity.CartItem
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		cartRepo := repoFactory.NewCartRepository()

		line, err := cartRepo.FindByIDAndUserForUpdate(ctx, itemID, userID)
		if err != nil {
			return mapCartError(err)
		}

		product, err := findProduct(ctx, repoFactory.NewProductRepository(), line.ProductID)
		if err != nil {
			return err
		}

		if !product.CanSupply(quantity) {
			return insufficientStock(product, quantity)
		}

		if err := cartRepo.SetQuantity(ctx, itemID, userID, quantity); err != nil {
			return mapCartError(err)
		}

		line.Quantity = quantity
		line.Product = product.WithMainImageOnly()
		updated = line

		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// RemoveItem deletes one of the caller's lines.
func (srv *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	if err := srv.cartRepo.Delete(ctx, itemID, userID); err != nil {
		return mapCartError(err)
	}

	return nil
}

// ClearCart deletes all of the caller's lines.
func (srv *cartService) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := srv.cartRepo.DeleteByUser(ctx, userID); err != nil {
		return errors.Wrap(err, "failed to clear cart")
	}

	return nil
}

// ListItems returns the caller's lines, newest first.
func (srv *cartService) ListItems(ctx context.Context, userID uuid.UUID) ([]*entity.CartItem, error) {
	items, err := srv.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list cart items")
	}

	return items, nil
}

func mapCartError(err error) error {
	if errors.Is(err, repository.ErrCartItemNotFound) {
		return domainerrors.ErrCartItemNotFound
	}

	return errors.Wrap(err, "cart repository")
}

func insufficientStock(product *entity.Product, requested int) error {
	available := 0
	if product.StockQuantity != nil {
		available = *product.StockQuantity
	}

	return domainerrors.ErrInsufficientStock.WithDetails(
		fmt.Sprintf("product %s: requested %d, available %d", product.ID, requested, available),
	)
}
