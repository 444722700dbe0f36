package handlers

import (
	"net/http"

	"delivery-marketplace/middleware"
	"delivery-marketplace/repository"

	"github.com/gin-gonic/gin"
)

type RoleRequest struct {
	Role         string `json:"role" binding:"required"`
	RestaurantID *uint  `json:"restaurant_id"`
}

// AdminGetAllOrders godoc
// @Summary Every order, with a per-status summary
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param customer_id query int false "Customer filter"
// @Param restaurant_id query int false "Restaurant filter"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /admin/orders [get]
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	customerID, ok := h.queryID(c, "customer_id")
	if !ok {
		return
	}
	restaurantID, ok := h.queryID(c, "restaurant_id")
	if !ok {
		return
	}
	orders, summary, err := h.orders.ListAllOrders(c.Request.Context(), c.Query("status"), customerID, restaurantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(orders),
		"summary": summary,
		"orders":  orders,
	})
}

// AdminGetAllUsers godoc
// @Summary Every account, or the holders of one role
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Role filter"
// @Success 200 {object} map[string]interface{}
// @Router /admin/users [get]
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.roles.ListUsers(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

// AdminGetAllRestaurants godoc
// @Summary Every restaurant, open or closed
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /admin/restaurants [get]
func (h *Handler) AdminGetAllRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.List(c.Request.Context(), repository.RestaurantFilter{})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// AdminListRoles godoc
// @Summary A user's role grants
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /admin/users/{id}/roles [get]
func (h *Handler) AdminListRoles(c *gin.Context) {
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	roles, err := h.roles.ListRoles(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "roles": roles})
}

// AdminGrantRole godoc
// @Summary Grant a role, optionally scoped to a restaurant
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body RoleRequest true "Grant"
// @Success 201 {object} models.UserRole
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /admin/users/{id}/roles [post]
func (h *Handler) AdminGrantRole(c *gin.Context) {
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !h.bind(c, &req) {
		return
	}
	grant, err := h.roles.Grant(c.Request.Context(), middleware.GetUserID(c), userID, req.Role, req.RestaurantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// AdminRevokeRole godoc
// @Summary Revoke one grant
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param role query string true "Role"
// @Param restaurant_id query int false "Restaurant scope of the grant"
// @Success 200 {object} map[string]string
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /admin/users/{id}/roles [delete]
func (h *Handler) AdminRevokeRole(c *gin.Context) {
	userID, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	restaurantID, ok := h.queryID(c, "restaurant_id")
	if !ok {
		return
	}
	var scope *uint
	if restaurantID != 0 {
		scope = &restaurantID
	}
	if err := h.roles.Revoke(c.Request.Context(), middleware.GetUserID(c), userID, c.Query("role"), scope); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "role revoked"})
}
