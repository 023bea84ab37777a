package middleware

import (
	"strings"

	"storefront/internal/domain/entity"
	domainerrors "storefront/internal/domain/errors"
	"storefront/internal/domain/service"

	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// AuthMiddleware authenticates bearer access tokens and applies role policies.
type AuthMiddleware struct {
	tokenSvc service.TokenService
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc}
}

// Authenticate validates the access token and stores the caller's Identity on the context.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return domainerrors.ErrAuthenticationRequired
		}

		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found || tokenString == "" {
			return domainerrors.ErrInvalidToken.WithDetails("must be a Bearer token")
		}

		claims, err := m.tokenSvc.ValidateToken(tokenString)
		if err != nil {
			return domainerrors.ErrInvalidToken
		}

		c.Set(identityKey, &entity.Identity{
			UserID: claims.UserID,
			Roles:  entity.RolesFromStrings(claims.Roles),
		})

		return next(c)
	}
}

// RequireRoles lets the request through when the identity holds any of the roles.
// It must run after Authenticate.
func (m *AuthMiddleware) RequireRoles(roles ...entity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := GetIdentity(c)
			if err := identity.Authorize(roles...); err != nil {
				return err
			}

			return next(c)
		}
	}
}

// GetIdentity returns the authenticated caller.
func GetIdentity(c echo.Context) (*entity.Identity, bool) {
	identity, ok := c.Get(identityKey).(*entity.Identity)

	return identity, ok && identity != nil
}

// MustIdentity returns the authenticated caller or ErrAuthenticationRequired.
func MustIdentity(c echo.Context) (*entity.Identity, error) {
	identity, _ := GetIdentity(c)
	if err := identity.Authorize(); err != nil {
		return nil, err
	}

	return identity, nil
}
