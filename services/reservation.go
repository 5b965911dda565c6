package services

import (
	"context"
	"fmt"
	"time"

	"table-reservation-api/metrics"
	"table-reservation-api/models"
	"table-reservation-api/statemachine"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type ReservationRequest struct {
	RestaurantID uint
	Date         string
	Time         string
	PartySize    int
}

type ReservationService struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewReservationService(db *gorm.DB, logger zerolog.Logger) *ReservationService {
	return &ReservationService{
		db:     db,
		logger: logger.With().Str("component", "reservations").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source used for the "not in the past" check.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// CreateReservation books a slot for the customer. The slot must be free,
// the restaurant must accept bookings and have enough seats left.
func (s *ReservationService) CreateReservation(ctx context.Context, customerID uint, req ReservationRequest) (*models.ReservationResponse, error) {
	if req.PartySize < 1 {
		return nil, validationError("At least 1 guest required")
	}
	date, clock, err := normalizeSlot(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	if date < s.now().Format(models.DateLayout) {
		return nil, validationError("Date must be today or future")
	}

	var reservation models.Reservation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := findUser(tx, customerID, "Customer not found")
		if err != nil {
			return err
		}
		var restaurant models.Restaurant
		if err := tx.First(&restaurant, req.RestaurantID).Error; err != nil {
			return notFoundOr(err, "Restaurant not found")
		}
		if !restaurant.Available {
			return conflictError("Restaurant is currently unavailable for reservations")
		}

		booked, err := exists(tx.Model(&models.Reservation{}).
			Where("restaurant_id = ? AND date = ? AND time = ?", restaurant.ID, date, clock))
		if err != nil {
			return err
		}
		if booked {
			return conflictError("This time slot is already booked!")
		}

		seats, err := availableSeats(tx, &restaurant, date, clock)
		if err != nil {
			return err
		}
		if req.PartySize > seats {
			return conflictError(fmt.Sprintf("Not enough seats available: %d requested, %d left", req.PartySize, seats))
		}

		reservation = models.Reservation{
			CustomerID:   customer.ID,
			RestaurantID: restaurant.ID,
			Date:         date,
			Time:         clock,
			PartySize:    req.PartySize,
			Status:       models.StatusPending,
		}
		if err := tx.Create(&reservation).Error; err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		reservation.Restaurant = &restaurant

		return tx.Create(&models.ReservationStatusHistory{
			ReservationID: reservation.ID,
			ToStatus:      models.StatusPending,
			ChangedBy:     customer.ID,
			Note:          "Reservation requested by customer",
		}).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.IncReservationCreated()
	s.logger.Info().
		Uint("reservation_id", reservation.ID).
		Uint("restaurant_id", reservation.RestaurantID).
		Str("date", date).Str("time", clock).
		Int("party_size", reservation.PartySize).
		Msg("reservation created")

	resp := toResponse(&reservation, false)
	return &resp, nil
}

// ReservationsForCustomer lists the customer's own bookings without
// customer identity fields.
func (s *ReservationService) ReservationsForCustomer(ctx context.Context, customerID uint) ([]models.ReservationResponse, error) {
	db := s.db.WithContext(ctx)
	if _, err := findUser(db, customerID, "Customer not found"); err != nil {
		return nil, err
	}

	var reservations []models.Reservation
	err := db.Preload("Restaurant").
		Where("customer_id = ?", customerID).
		Order("date, time, id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list customer reservations: %w", err)
	}
	return toResponses(reservations, false), nil
}

// ReservationsForRestaurant lists a restaurant's bookings including who
// made them. Owners may only see their own restaurants.
func (s *ReservationService) ReservationsForRestaurant(ctx context.Context, restaurantID uint, who models.Identity) ([]models.ReservationResponse, error) {
	db := s.db.WithContext(ctx)
	var restaurant models.Restaurant
	if err := db.First(&restaurant, restaurantID).Error; err != nil {
		return nil, notFoundOr(err, "Restaurant not found")
	}
	switch who.Role {
	case models.RoleAdmin:
	case models.RoleOwner:
		if restaurant.OwnerID != who.ID {
			return nil, forbiddenError("You are not the owner of this restaurant")
		}
	default:
		return nil, forbiddenError("Only the restaurant owner or an admin can list its reservations")
	}

	var reservations []models.Reservation
	err := db.Preload("Customer").
		Where("restaurant_id = ?", restaurantID).
		Order("date, time, id").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("list restaurant reservations: %w", err)
	}
	for i := range reservations {
		reservations[i].Restaurant = &restaurant
	}
	return toResponses(reservations, true), nil
}

// UpdateStatus applies a status change after the role policy and the
// lifecycle rules both allow it.
func (s *ReservationService) UpdateStatus(ctx context.Context, reservationID uint, status string, who models.Identity, note string) (*models.ReservationResponse, error) {
	newStatus, ok := models.ParseStatus(status)
	if !ok {
		return nil, validationError("Invalid status. Must be one of: PENDING, CONFIRMED, CANCELLED, COMPLETED")
	}

	db := s.db.WithContext(ctx)
	reservation, err := s.find(db, reservationID)
	if err != nil {
		return nil, err
	}

	switch who.Role {
	case models.RoleAdmin:
	case models.RoleOwner:
		if reservation.Restaurant.OwnerID != who.ID {
			return nil, forbiddenError("You are not the owner of this restaurant")
		}
	case models.RoleCustomer:
		if reservation.CustomerID != who.ID {
			return nil, forbiddenError("You can only update your own reservations")
		}
		if newStatus != models.StatusCancelled {
			return nil, forbiddenError("Customers can only cancel reservations")
		}
	default:
		return nil, forbiddenError("Access denied")
	}

	if err := statemachine.CanTransition(reservation.Status, newStatus, who.Role); err != nil {
		return nil, conflictError(err.Error())
	}

	previous := reservation.Status
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", reservation.ID, previous).
			Update("status", newStatus)
		if res.Error != nil {
			return fmt.Errorf("update status: %w", res.Error)
		}
		// another request moved the reservation after it was loaded
		if res.RowsAffected == 0 {
			return conflictError("Reservation status changed concurrently, please retry")
		}
		return tx.Create(&models.ReservationStatusHistory{
			ReservationID: reservation.ID,
			FromStatus:    previous,
			ToStatus:      newStatus,
			ChangedBy:     who.ID,
			Note:          note,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	reservation.Status = newStatus

	metrics.IncStatusChange(string(newStatus), string(who.Role))
	s.logger.Info().
		Uint("reservation_id", reservation.ID).
		Str("from", string(previous)).
		Str("to", string(newStatus)).
		Uint("changed_by", who.ID).
		Msg("reservation status changed")

	resp := toResponse(reservation, false)
	return &resp, nil
}

// History returns the status changes of a reservation, oldest first.
func (s *ReservationService) History(ctx context.Context, reservationID uint, who models.Identity) ([]models.ReservationStatusHistory, error) {
	db := s.db.WithContext(ctx)
	reservation, err := s.find(db, reservationID)
	if err != nil {
		return nil, err
	}
	allowed := who.Role == models.RoleAdmin ||
		(who.Role == models.RoleOwner && reservation.Restaurant.OwnerID == who.ID) ||
		(who.Role == models.RoleCustomer && reservation.CustomerID == who.ID)
	if !allowed {
		return nil, forbiddenError("You cannot view this reservation")
	}

	history := []models.ReservationStatusHistory{}
	if err := db.Where("reservation_id = ?", reservationID).Order("id").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return history, nil
}

func (s *ReservationService) find(db *gorm.DB, id uint) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := db.Preload("Restaurant").First(&reservation, id).Error; err != nil {
		return nil, notFoundOr(err, "Reservation not found")
	}
	if reservation.Restaurant == nil {
		return nil, notFoundError("Restaurant not found")
	}
	return &reservation, nil
}

// normalizeSlot validates a date and a clock time and returns them in the
// stored YYYY-MM-DD and HH:MM forms.
func normalizeSlot(date, clock string) (string, string, error) {
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return "", "", validationError("Invalid date; expected YYYY-MM-DD")
	}
	t, err := time.Parse(models.TimeLayout, clock)
	if err != nil {
		if t, err = time.Parse("15:04:05", clock); err != nil {
			return "", "", validationError("Invalid time; expected HH:MM")
		}
	}
	return d.Format(models.DateLayout), t.Format(models.TimeLayout), nil
}

func toResponse(r *models.Reservation, withCustomer bool) models.ReservationResponse {
	resp := models.ReservationResponse{
		ID:           r.ID,
		RestaurantID: r.RestaurantID,
		Date:         r.Date,
		Time:         r.Time,
		PartySize:    r.PartySize,
		Status:       r.Status,
	}
	if r.Restaurant != nil {
		resp.RestaurantName = r.Restaurant.Name
	}
	if withCustomer && r.Customer != nil {
		resp.CustomerName = r.Customer.Username
		resp.CustomerEmail = r.Customer.Email
	}
	return resp
}

func toResponses(reservations []models.Reservation, withCustomer bool) []models.ReservationResponse {
	out := make([]models.ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, toResponse(&reservations[i], withCustomer))
	}
	return out
}
