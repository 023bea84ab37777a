// Package handler contains the HTTP handlers for the API.
package handler

import (
	"strings"

	"storefront/internal/delivery/api/middleware"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return domainerrors.ErrValidationFailed.WithDetails("malformed request body")
	}

	return c.Validate(req)
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails(name + " must be a UUID")
	}

	return id, nil
}

func callerID(c echo.Context) (uuid.UUID, error) {
	identity, err := middleware.MustIdentity(c)
	if err != nil {
		return uuid.Nil, err
	}

	return identity.UserID, nil
}

func pageRequest(c echo.Context) (usecase.PageRequest, error) {
	var page usecase.PageRequest

	if err := echo.QueryParamsBinder(c).
		Int("page", &page.Page).
		Int("limit", &page.Limit).
		BindError(); err != nil {
		return page, domainerrors.ErrValidationFailed.WithDetails("page and limit must be integers")
	}

	return page, nil
}

func decimalQuery(c echo.Context, name string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(name + " must be a decimal number")
	}

	return &d, nil
}

func optionalUUIDQuery(c echo.Context, name string) (*uuid.UUID, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, domainerrors.ErrValidationFailed.WithDetails(name + " must be a UUID")
	}

	return &id, nil
}
