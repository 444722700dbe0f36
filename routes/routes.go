package routes

import (
	"net/http"

	_ "delivery-marketplace/docs" // swagger spec
	"delivery-marketplace/authz"
	"delivery-marketplace/handlers"
	"delivery-marketplace/middleware"
	"delivery-marketplace/models"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, az *authz.Authorizer) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "Delivery Marketplace API",
			"version": "1.0.0",
		})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	public.Use(middleware.Authorize(az, nil, models.RolePublic))
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Any authenticated user ─────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(middleware.Authorize(az, nil, models.RoleCustomer))
	{
		customer.POST("/auth/logout", h.Logout)
		customer.GET("/profile", h.GetProfile)

		customer.GET("/cart", h.GetCart)
		customer.POST("/cart", h.ReplaceCart)

		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrderDetail)
		customer.PUT("/orders/:id/status", h.UpdateOrderStatus)

		customer.POST("/restaurants", h.CreateRestaurant)
	}

	// ── Restaurant staff routes ────────────────────────────────────
	partner := r.Group("/api/partner/restaurants")
	partner.GET("", middleware.Authorize(az, nil, models.RoleRestaurantAdmin, models.RoleRestaurantEmployee, models.RoleAdmin), h.GetMyRestaurants)

	scoped := middleware.RestaurantParam("id")
	staff := partner.Group("/:id")
	staff.Use(middleware.Authorize(az, scoped, models.RoleRestaurantAdmin, models.RoleRestaurantEmployee, models.RoleAdmin))
	{
		staff.GET("/orders", h.GetRestaurantOrders)
		staff.PUT("/orders/:orderId/status", h.UpdateRestaurantOrderStatus)
		staff.GET("/menu", h.GetPartnerMenu)
	}

	owner := partner.Group("/:id")
	owner.Use(middleware.Authorize(az, scoped, models.RoleRestaurantAdmin, models.RoleAdmin))
	{
		owner.PUT("", h.UpdateRestaurant)
		owner.DELETE("", h.DeleteRestaurant)

		owner.POST("/menu", h.AddMenuItem)
		owner.PUT("/menu/:itemId", h.UpdateMenuItem)
		owner.DELETE("/menu/:itemId", h.DeleteMenuItem)

		owner.GET("/staff", h.ListStaff)
		owner.POST("/staff", h.AddStaff)
		owner.DELETE("/staff/:userId", h.RemoveStaff)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(middleware.Authorize(az, nil, models.RoleDriver, models.RoleAdmin))
	{
		driver.GET("/orders/available", h.GetAvailableOrders)
		driver.GET("/deliveries", h.GetMyDeliveries)
		driver.GET("/earnings", h.GetEarnings)
		driver.PUT("/orders/:id/pickup", h.PickupOrder)
		driver.PUT("/orders/:id/deliver", h.DeliverOrder)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(middleware.Authorize(az, nil, models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.GET("/restaurants", h.AdminGetAllRestaurants)
		admin.GET("/users/:id/roles", h.AdminListRoles)
		admin.POST("/users/:id/roles", h.AdminGrantRole)
		admin.DELETE("/users/:id/roles", h.AdminRevokeRole)
	}
}
