package handlers

import (
	"net/http"
	"strconv"

	"table-reservation-api/services"

	"github.com/gin-gonic/gin"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type RestaurantRequest struct {
	Name      string `json:"name" binding:"required"`
	Location  string `json:"location"`
	Cuisine   string `json:"cuisine"`
	Capacity  int    `json:"capacity" binding:"required,min=1"`
	Available *bool  `json:"available"`
	OwnerID   uint   `json:"ownerId"`
}

func (r RestaurantRequest) input(ownerID uint) services.RestaurantInput {
	return services.RestaurantInput{
		Name:      r.Name,
		Location:  r.Location,
		Cuisine:   r.Cuisine,
		Capacity:  r.Capacity,
		OwnerID:   ownerID,
		Available: r.Available,
	}
}

// AddRestaurant lets an owner register a restaurant under their own account
func (h *Handler) AddRestaurant(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req RestaurantRequest
	if !bindJSON(c, &req) {
		return
	}
	restaurant, err := h.restaurants.AddRestaurant(c.Request.Context(), req.input(who.ID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// AdminAddRestaurant creates a restaurant for the owner named in the body
func (h *Handler) AdminAddRestaurant(c *gin.Context) {
	var req RestaurantRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OwnerID == 0 {
		fail(c, http.StatusBadRequest, "ownerId is required")
		return
	}
	restaurant, err := h.restaurants.AddRestaurant(c.Request.Context(), req.input(req.OwnerID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

// AdminUpdateRestaurant overwrites a restaurant. Without ownerId the owner is kept.
func (h *Handler) AdminUpdateRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req RestaurantRequest
	if !bindJSON(c, &req) {
		return
	}
	ownerID := req.OwnerID
	if ownerID == 0 {
		current, err := h.restaurants.RestaurantByID(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		ownerID = current.OwnerID
	}
	restaurant, err := h.restaurants.UpdateRestaurant(c.Request.Context(), id, req.input(ownerID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) AdminDeleteRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.restaurants.DeleteRestaurant(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "Restaurant deleted successfully")
}

// MyRestaurants lists the restaurants owned by the logged-in user
func (h *Handler) MyRestaurants(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	restaurants, err := h.restaurants.RestaurantsByOwner(c.Request.Context(), who.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurants)
}

// UpdateMyAvailability opens or closes one of the caller's restaurants for bookings
func (h *Handler) UpdateMyAvailability(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	available, err := strconv.ParseBool(c.Query("available"))
	if err != nil {
		fail(c, http.StatusBadRequest, "available must be true or false")
		return
	}
	restaurant, err := h.restaurants.UpdateAvailability(c.Request.Context(), id, available, who.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) DeleteMyRestaurant(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.restaurants.DeleteMyRestaurant(c.Request.Context(), id, who.ID); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "Restaurant deleted successfully")
}
