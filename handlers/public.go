package handlers

import (
	"net/http"

	"delivery-marketplace/repository"
	"delivery-marketplace/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants godoc
// @Summary Browse restaurants
// @Tags public
// @Produce json
// @Param cuisine query string false "Cuisine contains"
// @Param search query string false "Name contains"
// @Param open query bool false "Only open restaurants"
// @Success 200 {object} map[string]interface{}
// @Router /restaurants [get]
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.List(c.Request.Context(), repository.RestaurantFilter{
		Cuisine:  c.Query("cuisine"),
		Search:   c.Query("search"),
		OpenOnly: c.Query("open") == "true",
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant godoc
// @Summary One restaurant with its full menu
// @Tags public
// @Produce json
// @Param id path int true "Restaurant ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /restaurants/{id} [get]
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.restaurants.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu godoc
// @Summary Available menu items of a restaurant
// @Tags public
// @Produce json
// @Param id path int true "Restaurant ID"
// @Param category query string false "Category"
// @Param is_veg query bool false "Vegetarian only"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} apperrors.ErrorResponse
// @Router /restaurants/{id}/menu [get]
func (h *Handler) GetMenu(c *gin.Context) {
	h.menu(c, true)
}

func (h *Handler) menu(c *gin.Context, availableOnly bool) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.restaurants.Menu(c.Request.Context(), id, repository.MenuFilter{
		Category:      c.Query("category"),
		VegOnly:       c.Query("is_veg") == "true",
		AvailableOnly: availableOnly,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant_id": id,
		"count":         len(items),
		"menu":          items,
	})
}

// GetStateMachineInfo godoc
// @Summary The order lifecycle: every legal transition and who may perform it
// @Tags public
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /state-machine [get]
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"initial_status": statemachine.InitialStatus,
		"transitions":    statemachine.GetAllTransitions(),
	})
}
