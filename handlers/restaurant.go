package handlers

import (
	"net/http"

	"delivery-marketplace/apperrors"
	"delivery-marketplace/middleware"
	"delivery-marketplace/models"
	"delivery-marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type UpdateRestaurantRequest struct {
	Name        *string `json:"name"`
	Cuisine     *string `json:"cuisine"`
	Address     *string `json:"address"`
	Description *string `json:"description"`
	IsOpen      *bool   `json:"is_open"`
}

// GetMyRestaurants godoc
// @Summary Restaurants the caller works at
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /partner/restaurants [get]
func (h *Handler) GetMyRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.ListMine(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// UpdateRestaurant godoc
// @Summary Change restaurant details or open/close it
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param request body UpdateRestaurantRequest true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 403 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id} [put]
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateRestaurantRequest
	if !h.bind(c, &req) {
		return
	}
	restaurant, err := h.restaurants.Update(c.Request.Context(), id, service.RestaurantUpdate{
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		Address:     req.Address,
		Description: req.Description,
		IsOpen:      req.IsOpen,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "restaurant updated", "restaurant": restaurant})
}

// DeleteRestaurant godoc
// @Summary Delete a restaurant that has never received an order
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Success 200 {object} map[string]string
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id} [delete]
func (h *Handler) DeleteRestaurant(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	if err := h.restaurants.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "restaurant deleted"})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type MenuItemRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Category    string          `json:"category"`
	IsVeg       bool            `json:"is_veg"`
}

type UpdateMenuItemRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string"`
	Category    *string          `json:"category"`
	IsVeg       *bool            `json:"is_veg"`
	IsAvailable *bool            `json:"is_available"`
}

// GetPartnerMenu godoc
// @Summary Every menu item, including unavailable ones
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Success 200 {object} map[string]interface{}
// @Router /partner/restaurants/{id}/menu [get]
func (h *Handler) GetPartnerMenu(c *gin.Context) {
	h.menu(c, false)
}

// AddMenuItem godoc
// @Summary Add a menu item
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param request body MenuItemRequest true "Menu item"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/menu [post]
func (h *Handler) AddMenuItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req MenuItemRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.restaurants.AddMenuItem(c.Request.Context(), id, service.MenuItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsVeg:       req.IsVeg,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "menu item added", "item": item})
}

// UpdateMenuItem godoc
// @Summary Change a menu item
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param itemId path int true "Menu item ID"
// @Param request body UpdateMenuItemRequest true "Fields to change"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/menu/{itemId} [put]
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemId")
	if !ok {
		return
	}
	var req UpdateMenuItemRequest
	if !h.bind(c, &req) {
		return
	}
	item, err := h.restaurants.UpdateMenuItem(c.Request.Context(), id, itemID, service.MenuItemUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		IsVeg:       req.IsVeg,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu item updated", "item": item})
}

// DeleteMenuItem godoc
// @Summary Remove a menu item; it also leaves every cart
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param itemId path int true "Menu item ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/menu/{itemId} [delete]
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(c, "itemId")
	if !ok {
		return
	}
	if err := h.restaurants.DeleteMenuItem(c.Request.Context(), id, itemID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "menu item deleted"})
}

// ── Staff Management ────────────────────────────────────────────────────────

type StaffRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required"`
}

// ListStaff godoc
// @Summary Users holding a role at the restaurant
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Success 200 {object} map[string]interface{}
// @Router /partner/restaurants/{id}/staff [get]
func (h *Handler) ListStaff(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	staff, err := h.restaurants.ListStaff(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(staff), "staff": staff})
}

// AddStaff godoc
// @Summary Give an existing user a role at the restaurant
// @Tags partner
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param request body StaffRequest true "User email and RESTAURANT_ADMIN or RESTAURANT_EMPLOYEE"
// @Success 201 {object} service.StaffMember
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 409 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/staff [post]
func (h *Handler) AddStaff(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req StaffRequest
	if !h.bind(c, &req) {
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		h.respondError(c, apperrors.Validation("invalid role", map[string]string{"role": "unknown role"}))
		return
	}
	member, err := h.restaurants.AddStaff(c.Request.Context(), id, req.Email, role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// RemoveStaff godoc
// @Summary Revoke every role a user holds at the restaurant
// @Tags partner
// @Produce json
// @Security BearerAuth
// @Param id path int true "Restaurant ID"
// @Param userId path int true "User ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} apperrors.ErrorResponse
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /partner/restaurants/{id}/staff/{userId} [delete]
func (h *Handler) RemoveStaff(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := h.pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.restaurants.RemoveStaff(c.Request.Context(), id, userID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "staff member removed"})
}
