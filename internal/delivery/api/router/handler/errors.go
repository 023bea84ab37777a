package handler

import domainerrors "storefront/internal/domain/errors"

var errMissingOrderID = domainerrors.ErrValidationFailed.WithDetails("id is required")
