package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"table-reservation-api/middleware"
	"table-reservation-api/models"
	"table-reservation-api/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// APIResponse is the envelope for operations without a resource payload.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Handler serves the HTTP API on top of the domain services.
type Handler struct {
	auth         *services.AuthService
	restaurants  *services.RestaurantService
	reservations *services.ReservationService
	logger       zerolog.Logger
}

func New(auth *services.AuthService, restaurants *services.RestaurantService, reservations *services.ReservationService, logger zerolog.Logger) *Handler {
	registerValidators()
	return &Handler{
		auth:         auth,
		restaurants:  restaurants,
		reservations: reservations,
		logger:       logger.With().Str("component", "http").Logger(),
	}
}

var validatorsOnce sync.Once

// registerValidators adds the "role" tag and makes field errors report the
// JSON field name.
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, ok := models.ParseRole(fl.Field().String())
			return ok
		})
	})
}

func success(c *gin.Context, message string) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Message: message})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Message: message})
}

// respondError maps a service error onto its HTTP status. Anything that is
// not a client-facing error is logged and hidden behind a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		status := http.StatusInternalServerError
		switch svcErr.Kind {
		case services.KindValidation:
			status = http.StatusBadRequest
		case services.KindConflict:
			status = http.StatusBadRequest
		case services.KindNotFound:
			status = http.StatusNotFound
		case services.KindForbidden:
			status = http.StatusForbidden
		case services.KindUnauthorized:
			status = http.StatusUnauthorized
		}
		fail(c, status, svcErr.Message)
		return
	}

	_ = c.Error(err)
	h.logger.Error().Err(err).
		Str("request_id", middleware.RequestID(c)).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
	fail(c, http.StatusInternalServerError, "Something went wrong, please try again later")
}

// bindJSON decodes the body and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, bindingMessage(err))
		return false
	}
	return true
}

// bindingMessage reports the first failing field, like "partySize must be at least 1".
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Malformed request body"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "role":
		return fe.Field() + " must be one of: ADMIN, OWNER, CUSTOMER"
	default:
		return fe.Field() + " is invalid"
	}
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// identity returns the caller; routes guarded by RoleRequired always have one.
func identity(c *gin.Context) (models.Identity, bool) {
	who, ok := middleware.CurrentIdentity(c)
	if !ok {
		fail(c, http.StatusForbidden, "Access denied. Authentication required")
	}
	return who, ok
}
