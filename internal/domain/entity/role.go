// Package entity contains the core business objects of the project.
package entity

import (
	"slices"

	"github.com/google/uuid"

	domainerrors "storefront/internal/domain/errors"
)

// Role represents the type of role a user can have in the system.
type Role string

const (
	// RoleSuperAdmin has full back-office access.
	RoleSuperAdmin Role = "SUPER_ADMIN"
	// RoleManagement manages catalog and orders.
	RoleManagement Role = "MANAGEMENT"
	// RoleCustomer shops on the storefront.
	RoleCustomer Role = "CUSTOMER"
)

// AdminRoles are the roles allowed into back-office operations.
var AdminRoles = Roles{RoleSuperAdmin, RoleManagement}

// String returns the string representation of the Role.
func (r Role) String() string {
	return string(r)
}

// IsValid checks if the Role is a valid value.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperAdmin, RoleManagement, RoleCustomer:
		return true
	default:
		return false
	}
}

// Roles is a slice of Role for convenience.
type Roles []Role

// Contains checks if the roles slice contains a specific role.
func (rs Roles) Contains(role Role) bool {
	return slices.Contains(rs, role)
}

// ToStrings converts Roles to []string for JWT compatibility.
func (rs Roles) ToStrings() []string {
	result := make([]string, len(rs))
	for i, r := range rs {
		result[i] = r.String()
	}

	return result
}

// RolesFromStrings converts []string to Roles, filtering out invalid role strings.
func RolesFromStrings(ss []string) Roles {
	result := make(Roles, 0, len(ss))
	for _, s := range ss {
		role := Role(s)
		if role.IsValid() {
			result = append(result, role)
		}
	}

	return result
}

// Identity is the verified caller of an operation.
type Identity struct {
	UserID uuid.UUID
	Roles  Roles
}

// Authorize allows the identity when required is empty or when it holds any of the required roles.
func (id *Identity) Authorize(required ...Role) error {
	if id == nil || id.UserID == uuid.Nil {
		return domainerrors.ErrAuthenticationRequired
	}

	if len(required) == 0 {
		return nil
	}

	for _, r := range required {
		if id.Roles.Contains(r) {
			return nil
		}
	}

	return domainerrors.ErrForbidden
}
