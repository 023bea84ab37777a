package impl

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"storefront/config"
	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/repository"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func findProduct(ctx context.Context, repo repository.ProductRepository, id uuid.UUID) (*entity.Product, error) {
	product, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, domainerrors.ErrProductNotFound.WithDetails("product " + id.String() + " not found")
		}

		return nil, errors.Wrap(err, "failed to find product")
	}

	return product, nil
}

// checkQuantity rejects line quantities outside 1..entity.MaxItemQuantity.
func checkQuantity(qty int) error {
	if !entity.IsValidQuantity(qty) {
		return domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("quantity must be between 1 and %d", entity.MaxItemQuantity))
	}

	return nil
}

// moneyProblem describes why amount cannot be stored, or returns "".
func moneyProblem(field string, amount decimal.Decimal) string {
	switch {
	case !entity.HasMoneyScale(amount):
		return fmt.Sprintf("%s must have at most %d decimal places", field, entity.MoneyScale)
	case !entity.FitsMoneyRange(amount):
		return fmt.Sprintf("%s must not exceed %s", field, entity.MaxMoneyAmount)
	default:
		return ""
	}
}

// checkOrderAmounts rejects orders whose computed amounts overflow the money columns.
func checkOrderAmounts(order *entity.Order) error {
	if !order.AmountsStorable() {
		return domainerrors.ErrValidationFailed.WithDetails(
			fmt.Sprintf("order amounts must not exceed %s", entity.MaxMoneyAmount))
	}

	return nil
}

// normalizePage applies the catalog paging defaults and clamps the limit.
func normalizePage(req usecase.PageRequest, cfg *config.CatalogConfig) (page, limit int) {
	defaultLimit, maxLimit := 20, 100
	if cfg != nil {
		defaultLimit, maxLimit = cfg.DefaultPageSize, cfg.MaxPageSize
	}

	page = max(req.Page, 1)

	limit = req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	return page, min(limit, maxLimit)
}

// slugify lowercases s and joins its letter and digit runs with single dashes.
func slugify(s string) string {
	var b strings.Builder

	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			pendingDash = false

			continue
		}
		pendingDash = true
	}

	return b.String()
}
