package routes

import (
	"table-reservation-api/handlers"
	"table-reservation-api/middleware"
	"table-reservation-api/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes mounts the API. authenticate runs on every /api request;
// loginLimit guards the login endpoint only.
func SetupRoutes(r *gin.Engine, h *handlers.Handler, authenticate, loginLimit gin.HandlerFunc) {
	admin := middleware.RoleRequired(models.RoleAdmin)
	owner := middleware.RoleRequired(models.RoleOwner)
	customer := middleware.RoleRequired(models.RoleCustomer)
	ownerOrAdmin := middleware.RoleRequired(models.RoleOwner, models.RoleAdmin)
	anyRole := middleware.RoleRequired(models.RoleAdmin, models.RoleOwner, models.RoleCustomer)

	api := r.Group("/api")
	api.Use(authenticate)

	// State machine info (great for docs/Postman)
	api.GET("/state-machine", h.GetStateMachineInfo)

	// ── Auth & user administration ─────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", loginLimit, h.Login)

		auth.GET("/users", admin, h.ListUsers)
		auth.GET("/users/:id", admin, h.GetUser)
		auth.DELETE("/users/:id", admin, h.DeleteUser)
		auth.PUT("/users/:id/role", admin, h.ChangeUserRole)
		auth.PUT("/users/:id/password", admin, h.ChangeUserPassword)
		auth.PUT("/users/:id", admin, h.UpdateUser)
	}

	// ── Restaurants ────────────────────────────────────────────────
	restaurants := api.Group("/restaurants")
	{
		restaurants.GET("", h.ListRestaurants)
		restaurants.GET("/search/location", h.SearchByLocation)
		restaurants.GET("/search/cuisine", h.SearchByCuisine)
		restaurants.GET("/:id", h.GetRestaurant)
		restaurants.GET("/:id/availability", h.AvailableCapacity)

		restaurants.POST("/add", owner, h.AddRestaurant)
		restaurants.GET("/my", owner, h.MyRestaurants)
		restaurants.PUT("/my/:id/availability", owner, h.UpdateMyAvailability)
		restaurants.DELETE("/my/:id", owner, h.DeleteMyRestaurant)

		restaurants.POST("/admin/add", admin, h.AdminAddRestaurant)
		restaurants.PUT("/admin/:id", admin, h.AdminUpdateRestaurant)
		restaurants.DELETE("/admin/:id", admin, h.AdminDeleteRestaurant)
	}

	// ── Reservations ───────────────────────────────────────────────
	reservations := api.Group("/reservations")
	{
		reservations.POST("/book", customer, h.BookReservation)
		reservations.GET("/my", customer, h.MyReservations)
		reservations.GET("/restaurant/:id", ownerOrAdmin, h.RestaurantReservations)
		reservations.PUT("/:id/status", anyRole, h.UpdateStatusQuery)
		reservations.PUT("/:id/status-body", anyRole, h.UpdateStatusBody)
		reservations.GET("/:id/history", anyRole, h.ReservationHistory)
	}
}
