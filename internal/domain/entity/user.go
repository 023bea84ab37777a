// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is a storefront account. Customers and back-office staff share this entity and differ by Role.
type User struct {
	ID           uuid.UUID `json:"id"`         // The Global Unique Identifier (GUID) for the user.
	Email        string    `json:"email"`      // Login identifier, unique across users.
	Name         string    `json:"name"`       // Display name, also used as the default recipient name.
	Phone        string    `json:"phone"`      // Contact phone number.
	Role         Role      `json:"role"`       // Access level.
	PasswordHash string    `json:"-"`          // bcrypt hash of the password.
	CreatedAt    time.Time `json:"created_at"` // Timestamp of when this user account was created.
	UpdatedAt    time.Time `json:"updated_at"` // Timestamp of the last modification to this user's data.
}

// CustomerDetails are the user fields an administrator may correct from an order screen.
// Nil fields are left unchanged.
type CustomerDetails struct {
	Name  *string
	Email *string
	Phone *string
}

// Apply writes the set fields onto u and reports whether anything changed.
func (d *CustomerDetails) Apply(u *User) bool {
	changed := false

	if d.Name != nil && *d.Name != u.Name {
		u.Name = *d.Name
		changed = true
	}

	if d.Email != nil && *d.Email != u.Email {
		u.Email = *d.Email
		changed = true
	}

	if d.Phone != nil && *d.Phone != u.Phone {
		u.Phone = *d.Phone
		changed = true
	}

	return changed
}
