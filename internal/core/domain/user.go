package domain

import (
	"strings"
	"time"
)

// Role is the capability tier carried by a user and embedded in issued tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleClient Role = "client"
	RoleLead   Role = "lead"
)

// DefaultRole is assigned when a registration does not name one.
const DefaultRole = RoleLead

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleClient, RoleLead:
		return true
	}
	return false
}

// ParseRole maps free-form input to a Role. Empty input yields DefaultRole.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRole, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", NewValidationError("role must be one of: admin, staff, client, lead")
	}
	return r, nil
}

// User models an authenticated actor in the system.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Contact      string    `json:"contact,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail is the single lookup-key normalization used by every registry.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
