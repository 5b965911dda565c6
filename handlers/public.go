package handlers

import (
	"net/http"

	"table-reservation-api/models"
	"table-reservation-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns all restaurants (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.Restaurants(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurants)
}

// GetRestaurant returns a single restaurant
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.restaurants.RestaurantByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurant)
}

func (h *Handler) SearchByLocation(c *gin.Context) {
	location := c.Query("location")
	if location == "" {
		fail(c, http.StatusBadRequest, "location is required")
		return
	}
	restaurants, err := h.restaurants.SearchByLocation(c.Request.Context(), location)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurants)
}

func (h *Handler) SearchByCuisine(c *gin.Context) {
	cuisine := c.Query("cuisine")
	if cuisine == "" {
		fail(c, http.StatusBadRequest, "cuisine is required")
		return
	}
	restaurants, err := h.restaurants.SearchByCuisine(c.Request.Context(), cuisine)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, restaurants)
}

// AvailableCapacity returns the number of free seats for ?date=&time=
func (h *Handler) AvailableCapacity(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	date, clock := c.Query("date"), c.Query("time")
	if date == "" || clock == "" {
		fail(c, http.StatusBadRequest, "date and time are required")
		return
	}
	seats, err := h.restaurants.AvailableCapacity(c.Request.Context(), id, date, clock)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seats)
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	terminal := []models.ReservationStatus{}
	for _, s := range []models.ReservationStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusCancelled, models.StatusCompleted,
	} {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"transitions":    statemachine.GetAllTransitions(),
		"terminalStates": terminal,
		"description":    "Restaurant Reservation Lifecycle State Machine",
	})
}
