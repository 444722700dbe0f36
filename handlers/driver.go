package handlers

import (
	"net/http"

	"delivery-marketplace/middleware"
	"delivery-marketplace/models"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders godoc
// @Summary Accepted orders no driver has picked up yet, oldest first
// @Tags driver
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /driver/orders/available [get]
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.orders.ListAvailableForDrivers(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetMyDeliveries godoc
// @Summary Orders assigned to the caller
// @Tags driver
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Router /driver/deliveries [get]
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	orders, err := h.orders.ListDriverDeliveries(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetEarnings godoc
// @Summary Completed deliveries and the fees earned for them
// @Tags driver
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Earnings
// @Router /driver/earnings [get]
func (h *Handler) GetEarnings(c *gin.Context) {
	earnings, err := h.orders.DriverEarnings(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

// PickupOrder godoc
// @Summary Take an accepted order; it becomes ONGOING and is assigned to the caller
// @Tags driver
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /driver/orders/{id}/pickup [put]
func (h *Handler) PickupOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusOngoing)
}

// DeliverOrder godoc
// @Summary Mark the caller's ongoing order delivered
// @Tags driver
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /driver/orders/{id}/deliver [put]
func (h *Handler) DeliverOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusCompleted)
}

func (h *Handler) driverTransition(c *gin.Context, to models.OrderStatus) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.transition(c, id, service.TransitionInput{Status: string(to)})
}
