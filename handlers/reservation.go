package handlers

import (
	"net/http"

	"table-reservation-api/services"

	"github.com/gin-gonic/gin"
)

type BookReservationRequest struct {
	RestaurantID uint   `json:"restaurantId" binding:"required"`
	Date         string `json:"date" binding:"required"`
	Time         string `json:"time" binding:"required"`
	PartySize    int    `json:"partySize"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// BookReservation creates a PENDING reservation for the calling customer
func (h *Handler) BookReservation(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	var req BookReservationRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.reservations.CreateReservation(c.Request.Context(), who.ID, services.ReservationRequest{
		RestaurantID: req.RestaurantID,
		Date:         req.Date,
		Time:         req.Time,
		PartySize:    req.PartySize,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// MyReservations lists the caller's own reservations
func (h *Handler) MyReservations(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	list, err := h.reservations.ReservationsForCustomer(c.Request.Context(), who.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RestaurantReservations lists a restaurant's bookings with customer contact details
func (h *Handler) RestaurantReservations(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	list, err := h.reservations.ReservationsForRestaurant(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UpdateStatusQuery handles PUT /reservations/:id/status?status=
func (h *Handler) UpdateStatusQuery(c *gin.Context) {
	status := c.Query("status")
	if status == "" {
		fail(c, http.StatusBadRequest, "status is required")
		return
	}
	h.updateStatus(c, status, "")
}

// UpdateStatusBody handles PUT /reservations/:id/status-body with {status, note}
func (h *Handler) UpdateStatusBody(c *gin.Context) {
	var req UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	h.updateStatus(c, req.Status, req.Note)
}

func (h *Handler) updateStatus(c *gin.Context, status, note string) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.reservations.UpdateStatus(c.Request.Context(), id, status, who, note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReservationHistory returns the audit trail of status changes
func (h *Handler) ReservationHistory(c *gin.Context) {
	who, ok := identity(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	history, err := h.reservations.History(c.Request.Context(), id, who)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reservationId": id,
		"count":         len(history),
		"history":       history,
	})
}
