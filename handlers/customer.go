package handlers

import (
	"net/http"

	"delivery-marketplace/middleware"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CartItemRequest struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1"`
}

// CartRequest replaces the whole cart; an empty items list empties it.
type CartRequest struct {
	Items           []CartItemRequest `json:"items" binding:"required,dive"`
	ExpectedVersion *int              `json:"expected_version"`
}

type OrderItemRequest struct {
	MenuItemID uint             `json:"menu_item_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"required,min=1"`
	Price      *decimal.Decimal `json:"price" swaggertype:"string"`
}

type PlaceOrderRequest struct {
	RestaurantID    uint               `json:"restaurant_id" binding:"required"`
	Items           []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress string             `json:"delivery_address" binding:"required"`
	PaymentMethod   string             `json:"payment_method"`
	Total           *decimal.Decimal   `json:"total" swaggertype:"string"`
	Notes           string             `json:"notes"`
}

type StatusRequest struct {
	Status   string `json:"status" binding:"required"`
	Note     string `json:"note"`
	DriverID *uint  `json:"driver_id"`
}

type CreateRestaurantRequest struct {
	Name        string `json:"name" binding:"required"`
	Cuisine     string `json:"cuisine"`
	Address     string `json:"address"`
	Description string `json:"description"`
}

// GetCart godoc
// @Summary The caller's cart priced at current menu prices
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.CartView
// @Failure 401 {object} apperrors.ErrorResponse
// @Router /cart [get]
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.carts.GetCart(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ReplaceCart godoc
// @Summary Replace the caller's cart with the submitted items
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CartRequest true "Full cart contents"
// @Success 200 {object} service.CartView
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /cart [post]
func (h *Handler) ReplaceCart(c *gin.Context) {
	var req CartRequest
	if !h.bind(c, &req) {
		return
	}
	in := service.ReplaceCartInput{
		Items:           make([]service.CartLine, 0, len(req.Items)),
		ExpectedVersion: req.ExpectedVersion,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.CartLine{MenuItemID: item.MenuItemID, Quantity: item.Quantity})
	}

	cart, err := h.carts.ReplaceCart(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// PlaceOrder godoc
// @Summary Place an order at one restaurant
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body PlaceOrderRequest true "Order"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /orders [post]
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if !h.bind(c, &req) {
		return
	}
	in := service.PlaceOrderInput{
		RestaurantID:    req.RestaurantID,
		Items:           make([]service.OrderLine, 0, len(req.Items)),
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		Total:           req.Total,
		Notes:           req.Notes,
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.OrderLine{MenuItemID: item.MenuItemID, Quantity: item.Quantity, Price: item.Price})
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), middleware.GetIdentity(c), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":                "order placed",
		"order":                  order,
		"estimated_time_minutes": order.EstimatedTime,
	})
}

// GetMyOrders godoc
// @Summary The caller's orders, newest first
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /orders [get]
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), middleware.GetUserID(c), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail godoc
// @Summary One order with items, history and delivery
// @Description Visible to its customer, its restaurant's staff, its driver and admins.
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /orders/{id} [get]
func (h *Handler) GetOrderDetail(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), middleware.GetIdentity(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateOrderStatus godoc
// @Summary Move an order to its next status
// @Description The caller's relation to the order decides which transitions are allowed.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param request body StatusRequest true "Target status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /orders/{id}/status [put]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !h.bind(c, &req) {
		return
	}
	h.transition(c, id, service.TransitionInput{Status: req.Status, Note: req.Note, DriverID: req.DriverID})
}

func (h *Handler) transition(c *gin.Context, orderID uint, in service.TransitionInput) {
	order, err := h.orders.Transition(c.Request.Context(), middleware.GetIdentity(c), orderID, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "order status updated",
		"order":   order,
	})
}

// CreateRestaurant godoc
// @Summary Open a restaurant; the caller becomes its RESTAURANT_ADMIN
// @Tags restaurants
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRestaurantRequest true "Restaurant"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /restaurants [post]
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req CreateRestaurantRequest
	if !h.bind(c, &req) {
		return
	}
	restaurant, err := h.restaurants.Create(c.Request.Context(), middleware.GetIdentity(c), service.RestaurantInput{
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		Address:     req.Address,
		Description: req.Description,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "restaurant created", "restaurant": restaurant})
}
