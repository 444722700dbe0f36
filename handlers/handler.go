package handlers

import (
	"strconv"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/middleware"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth        *service.AuthService
	Restaurants *service.RestaurantService
	Carts       *service.CartService
	Orders      *service.OrderService
	Roles       *service.RoleService
}

// Handler serves every API endpoint.
type Handler struct {
	auth        *service.AuthService
	restaurants *service.RestaurantService
	carts       *service.CartService
	orders      *service.OrderService
	roles       *service.RoleService
	log         *logrus.Logger

	secureCookie bool
}

// New creates a handler. secureCookie marks the login cookie Secure.
func New(svc Services, log *logrus.Logger, secureCookie bool) *Handler {
	return &Handler{
		auth:         svc.Auth,
		restaurants:  svc.Restaurants,
		carts:        svc.Carts,
		orders:       svc.Orders,
		roles:        svc.Roles,
		log:          log,
		secureCookie: secureCookie,
	}
}

// respondError writes the error body for err. Internal causes are logged, never returned.
func (h *Handler) respondError(c *gin.Context, err error) {
	status, body := apperrors.ToResponse(err)
	if apperrors.KindOf(err) == apperrors.KindInternal {
		h.log.WithFields(logrus.Fields{
			"request_id": middleware.RequestID(c),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("internal error")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// bind decodes and validates the JSON body, writing the validation error on failure.
func (h *Handler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, apperrors.FromBinding(err))
		return false
	}
	return true
}

// pathID parses a positive integer path parameter.
func (h *Handler) pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.respondError(c, apperrors.Validation("invalid "+name, map[string]string{name: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// queryID parses an optional positive integer query parameter; absent means 0.
func (h *Handler) queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		h.respondError(c, apperrors.Validation("invalid "+name, map[string]string{name: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}
