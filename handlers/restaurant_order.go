package handlers

import (
	"net/http"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/middleware"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders godoc
// @Summary A restaurant's orders with a per-status summary
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param status query string false "Status filter"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/orders [get]
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	orders, summary, err := h.orders.ListRestaurantOrders(c.Request.Context(), id, c.Query("status"))
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

// UpdateRestaurantOrderStatus godoc
// @Summary Accept or cancel one of the restaurant's orders
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param orderId path int true "Order ID"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/orders/{orderId}/status [put]
func (h *Handler) UpdateRestaurantOrderStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	orderID, ok := h.pathID(c, "orderId")
	if !ok {
		return
	}
	var req StatusRequest
	if !h.bind(c, &req) {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetIdentity(c), orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if order.RestaurantID != id {
		h.respondError(c, apperrors.NotFound("order"))
		return
	}
	h.transition(c, orderID, service.TransitionInput{Status: req.Status, Note: req.Note})
}
