package handlers

import (
	"net/http"

	"table-reservation-api/models"
	"table-reservation-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// ListUsers returns all users, optionally filtered by ?role=
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.auth.Users(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if raw := c.Query("role"); raw != "" {
		role, ok := models.ParseRole(raw)
		if !ok {
			fail(c, http.StatusBadRequest, "Invalid role. Must be one of: ADMIN, OWNER, CUSTOMER")
			return
		}
		filtered := users[:0]
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.auth.UserByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a user with their reservations and restaurants
func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.auth.DeleteUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "User deleted successfully")
}

func (h *Handler) ChangeUserRole(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	role := c.Query("role")
	if role == "" {
		fail(c, http.StatusBadRequest, "role is required")
		return
	}
	user, err := h.auth.ChangeUserRole(c.Request.Context(), id, role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "User role updated to "+string(user.Role))
}

func (h *Handler) ChangeUserPassword(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	password := c.Query("password")
	if password == "" {
		fail(c, http.StatusBadRequest, "password is required")
		return
	}
	if err := h.auth.ChangeUserPassword(c.Request.Context(), id, password); err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "Password updated successfully")
}

// UpdateUser changes username and/or email; empty fields are kept
func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	_, err := h.auth.UpdateUser(c.Request.Context(), id, services.UserPatch{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	success(c, "User updated successfully")
}
