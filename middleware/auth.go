package middleware

import (
	"net/http"
	"strconv"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/auth"
	"delivery-marketplace/authz"
	"delivery-marketplace/models"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// ScopeFunc extracts the restaurant an endpoint is scoped to, or nil for unscoped endpoints.
type ScopeFunc func(c *gin.Context) (*uint, error)

// RestaurantParam scopes the endpoint to the restaurant id in the named path parameter.
func RestaurantParam(name string) ScopeFunc {
	return func(c *gin.Context) (*uint, error) {
		id, err := strconv.ParseUint(c.Param(name), 10, 64)
		if err != nil || id == 0 {
			return nil, apperrors.Validation("invalid restaurant id", map[string]string{name: "must be a positive integer"})
		}
		rid := uint(id)
		return &rid, nil
	}
}

// Authorize lets the request through when the caller satisfies one of roles, and stores the
// verified identity for handlers. Unauthenticated callers get 401, insufficient roles 403.
func Authorize(az *authz.Authorizer, scope ScopeFunc, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		var restaurantID *uint
		if scope != nil {
			rid, err := scope(c)
			if err != nil {
				abortWithError(c, err)
				return
			}
			restaurantID = rid
		}

		ident, err := az.GetVerifiedUser(c.Request.Context(), auth.ExtractCredential(c.Request), roles, restaurantID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// GetIdentity returns the identity stored by Authorize; the public identity when there is none.
func GetIdentity(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(auth.Identity); ok {
			return ident
		}
	}
	return auth.PublicIdentity()
}

// GetUserID extracts caller user ID from context
func GetUserID(c *gin.Context) uint {
	return GetIdentity(c).UserID
}

func abortWithError(c *gin.Context, err error) {
	status, body := apperrors.ToResponse(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", `Bearer realm="api"`)
	}
	c.AbortWithStatusJSON(status, body)
}
