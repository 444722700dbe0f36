package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is a named permission grant. The set is closed; use ParseRole at boundaries.
type Role string

const (
	RoleAdmin              Role = "ADMIN"
	RoleCustomer           Role = "CUSTOMER"
	RoleRestaurantAdmin    Role = "RESTAURANT_ADMIN"
	RoleRestaurantEmployee Role = "RESTAURANT_EMPLOYEE"
	RoleDriver             Role = "DRIVER"
	// RolePublic marks an endpoint that needs no authentication. It is never stored.
	RolePublic Role = "PUBLIC"
)

var allRoles = []Role{RoleAdmin, RoleCustomer, RoleRestaurantAdmin, RoleRestaurantEmployee, RoleDriver, RolePublic}

// ParseRole converts a loosely typed role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range allRoles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsGlobal reports whether the role is inherently unscoped.
func (r Role) IsGlobal() bool {
	switch r {
	case RoleAdmin, RoleCustomer, RoleDriver, RolePublic:
		return true
	}
	return false
}

// IsRestaurantRole reports whether the role is granted per restaurant.
func (r Role) IsRestaurantRole() bool {
	return r == RoleRestaurantAdmin || r == RoleRestaurantEmployee
}

// Storable reports whether the role may be persisted as a grant.
func (r Role) Storable() bool {
	return r != RolePublic && r != ""
}

type User struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	Name         string     `json:"name" gorm:"not null"`
	Email        string     `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"not null"`
	Phone        string     `json:"phone"`
	Roles        []UserRole `json:"roles,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// UserRole is one (role, optional restaurant) grant owned by a user.
type UserRole struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_user_role_scope"`
	Role         Role      `json:"role" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_role_scope"`
	RestaurantID *uint     `json:"restaurant_id,omitempty" gorm:"uniqueIndex:idx_user_role_scope;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// HasRole reports whether roles contains role, narrowed to restaurantID when given.
// Inherently global roles match any requested scope.
func HasRole(roles []UserRole, role Role, restaurantID *uint) bool {
	for _, r := range roles {
		if r.Role != role {
			continue
		}
		if restaurantID == nil {
			return true
		}
		if r.RestaurantID != nil && *r.RestaurantID == *restaurantID {
			return true
		}
		if r.RestaurantID == nil && role.IsGlobal() {
			return true
		}
	}
	return false
}

// RoleNames flattens grants into role names, deduplicated, in grant order.
func RoleNames(roles []UserRole) []Role {
	seen := map[Role]bool{}
	var out []Role
	for _, r := range roles {
		if !seen[r.Role] {
			seen[r.Role] = true
			out = append(out, r.Role)
		}
	}
	return out
}
