// Package authz decides whether an authenticated caller may use an endpoint.
package authz

import (
	"context"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/auth"
	"delivery-marketplace/models"
)

// RoleLookup is the slice of the role store the authorizer needs.
type RoleLookup interface {
	GetRoles(ctx context.Context, userID uint) ([]models.UserRole, error)
}

// Authorizer combines the Authenticator with stored role grants.
type Authorizer struct {
	authn *auth.Authenticator
	roles RoleLookup
}

func NewAuthorizer(authn *auth.Authenticator, roles RoleLookup) *Authorizer {
	return &Authorizer{authn: authn, roles: roles}
}

// GetVerifiedUser returns the caller's identity when it satisfies required, optionally narrowed to a
// restaurant. The checks run in order and stop at the first that decides:
//
//  1. PUBLIC in required: a public identity, no credential looked at.
//  2. credential does not authenticate: Unauthenticated.
//  3. CUSTOMER in required: every authenticated user passes.
//  4. a stored grant matches a required role (and the restaurant, when given; unscoped grants also pass).
//  5. otherwise Forbidden.
func (a *Authorizer) GetVerifiedUser(ctx context.Context, credential string, required []models.Role, restaurantID *uint) (auth.Identity, error) {
	if contains(required, models.RolePublic) {
		return auth.PublicIdentity(), nil
	}

	ident, err := a.authn.Authenticate(ctx, credential)
	if err != nil {
		return auth.Identity{}, err
	}

	if contains(required, models.RoleCustomer) {
		return ident, nil
	}

	grants, err := a.roles.GetRoles(ctx, ident.UserID)
	if err != nil {
		return auth.Identity{}, apperrors.Internal("failed to load roles", err)
	}
	if Allowed(grants, required, restaurantID) {
		ident.Roles = models.RoleNames(grants)
		return ident, nil
	}
	return auth.Identity{}, apperrors.Forbidden("insufficient role")
}

// Allowed reports whether grants satisfy any of required. With a restaurant given, a grant scoped to it
// passes, and so does an unscoped grant; a grant scoped to another restaurant never does.
func Allowed(grants []models.UserRole, required []models.Role, restaurantID *uint) bool {
	for _, g := range grants {
		if !contains(required, g.Role) {
			continue
		}
		if restaurantID == nil || g.RestaurantID == nil || *g.RestaurantID == *restaurantID {
			return true
		}
	}
	return false
}

func contains(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
