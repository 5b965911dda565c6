package services

import (
	"context"
	"testing"

	"table-reservation-api/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)

	resp := f.book(t, customer, r, "19:00:00", 4)
	assert.Equal(t, models.StatusPending, resp.Status)
	assert.Equal(t, "Luigi's", resp.RestaurantName)
	assert.Equal(t, "19:00", resp.Time)
	assert.Equal(t, bookingDate, resp.Date)
	assert.Empty(t, resp.CustomerName)

	var history []models.ReservationStatusHistory
	require.NoError(t, f.db.Where("reservation_id = ?", resp.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].ToStatus)
	assert.Equal(t, customer.ID, history[0].ChangedBy)
}

func TestCreateReservationRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 6)
	closed := f.restaurant(t, owner, "Closed", 6)
	_, err := f.restaurants.UpdateAvailability(ctx, closed.ID, false, owner.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     ReservationRequest
		kind    error
		message string
	}{
		{"no guests", ReservationRequest{RestaurantID: r.ID, Date: bookingDate, Time: "19:00", PartySize: 0}, ErrValidation, "At least 1 guest required"},
		{"past date", ReservationRequest{RestaurantID: r.ID, Date: "2026-05-31", Time: "19:00", PartySize: 2}, ErrValidation, "Date must be today or future"},
		{"bad date", ReservationRequest{RestaurantID: r.ID, Date: "tomorrow", Time: "19:00", PartySize: 2}, ErrValidation, ""},
		{"bad time", ReservationRequest{RestaurantID: r.ID, Date: bookingDate, Time: "7pm", PartySize: 2}, ErrValidation, ""},
		{"unknown restaurant", ReservationRequest{RestaurantID: 999, Date: bookingDate, Time: "19:00", PartySize: 2}, ErrNotFound, "Restaurant not found"},
		{"unavailable restaurant", ReservationRequest{RestaurantID: closed.ID, Date: bookingDate, Time: "19:00", PartySize: 2}, ErrConflict, "Restaurant is currently unavailable for reservations"},
		{"party larger than capacity", ReservationRequest{RestaurantID: r.ID, Date: bookingDate, Time: "19:00", PartySize: 7}, ErrConflict, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.reservations.CreateReservation(ctx, customer.ID, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}

	today := testNow.Format(models.DateLayout)
	_, err = f.reservations.CreateReservation(ctx, customer.ID, ReservationRequest{RestaurantID: r.ID, Date: today, Time: "19:00", PartySize: 2})
	assert.NoError(t, err)
}

func TestDoubleBookingConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	first := f.user(t, "carl", models.RoleCustomer)
	second := f.user(t, "dina", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 40)

	f.book(t, first, r, "19:00", 2)

	_, err := f.reservations.CreateReservation(ctx, second.ID, ReservationRequest{
		RestaurantID: r.ID, Date: bookingDate, Time: "19:00", PartySize: 2,
	})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, "This time slot is already booked!", err.Error())

	f.book(t, second, r, "19:30", 2)
}

func TestCustomerStatusPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	stranger := f.user(t, "dina", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	booked := f.book(t, customer, r, "19:00", 2)

	_, err := f.reservations.UpdateStatus(ctx, booked.ID, "CONFIRMED", customer.Identity(), "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "Customers can only cancel reservations", err.Error())

	_, err = f.reservations.UpdateStatus(ctx, booked.ID, "CANCELLED", stranger.Identity(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := f.reservations.UpdateStatus(ctx, booked.ID, "cancelled", customer.Identity(), "plans changed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, resp.Status)

	var stored models.Reservation
	require.NoError(t, f.db.First(&stored, booked.ID).Error)
	assert.Equal(t, models.StatusCancelled, stored.Status)
}

func TestOwnerStatusPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	intruder := f.user(t, "oscar", models.RoleOwner)
	admin := f.user(t, "root", models.RoleAdmin)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	booked := f.book(t, customer, r, "19:00", 2)

	_, err := f.reservations.UpdateStatus(ctx, booked.ID, "CONFIRMED", intruder.Identity(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	resp, err := f.reservations.UpdateStatus(ctx, booked.ID, "CONFIRMED", owner.Identity(), "table 4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, resp.Status)

	_, err = f.reservations.UpdateStatus(ctx, booked.ID, "COMPLETED", admin.Identity(), "")
	require.NoError(t, err)

	_, err = f.reservations.UpdateStatus(ctx, booked.ID, "CANCELLED", admin.Identity(), "")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.reservations.UpdateStatus(ctx, booked.ID, "ARCHIVED", admin.Identity(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.reservations.UpdateStatus(ctx, 999, "CONFIRMED", admin.Identity(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelledReservationCannotBeReopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	admin := f.user(t, "root", models.RoleAdmin)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	booked := f.book(t, customer, r, "19:00", 2)

	_, err := f.reservations.UpdateStatus(ctx, booked.ID, "CANCELLED", customer.Identity(), "")
	require.NoError(t, err)

	for _, status := range []string{"PENDING", "CONFIRMED"} {
		_, err = f.reservations.UpdateStatus(ctx, booked.ID, status, admin.Identity(), "")
		assert.ErrorIs(t, err, ErrConflict, status)
	}
}

func TestStatusChangeRacingCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	booked := f.book(t, customer, r, "19:00", 2)

	// the customer cancels between the owner's read and write
	raced := false
	require.NoError(t, f.db.Callback().Update().Before("gorm:update").Register("test:cancel_first", func(tx *gorm.DB) {
		if raced || tx.Statement.Table != "reservations" {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE reservations SET status = ? WHERE id = ?", models.StatusCancelled, booked.ID)
	}))

	_, err := f.reservations.UpdateStatus(ctx, booked.ID, "CONFIRMED", owner.Identity(), "")
	assert.ErrorIs(t, err, ErrConflict)
	assert.True(t, raced)

	var stored models.Reservation
	require.NoError(t, f.db.First(&stored, booked.ID).Error)
	assert.Equal(t, models.StatusCancelled, stored.Status)

	history, err := f.reservations.History(ctx, booked.ID, owner.Identity())
	require.NoError(t, err)
	assert.Len(t, history, 1, "only the creation entry")
}

func TestReservationsForRestaurant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	intruder := f.user(t, "oscar", models.RoleOwner)
	admin := f.user(t, "root", models.RoleAdmin)
	customer := f.user(t, "carl", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	f.book(t, customer, r, "19:00", 2)
	f.book(t, customer, r, "18:00", 3)

	_, err := f.reservations.ReservationsForRestaurant(ctx, r.ID, intruder.Identity())
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.reservations.ReservationsForRestaurant(ctx, r.ID, customer.Identity())
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := f.reservations.ReservationsForRestaurant(ctx, r.ID, owner.Identity())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "18:00", list[0].Time)
	for _, entry := range list {
		assert.Equal(t, "carl", entry.CustomerName)
		assert.Equal(t, "carl@example.com", entry.CustomerEmail)
		assert.Equal(t, "Luigi's", entry.RestaurantName)
	}

	list, err = f.reservations.ReservationsForRestaurant(ctx, r.ID, admin.Identity())
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.reservations.ReservationsForRestaurant(ctx, 999, admin.Identity())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationsForCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	other := f.user(t, "dina", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	f.book(t, customer, r, "19:00", 2)
	f.book(t, other, r, "20:00", 2)

	list, err := f.reservations.ReservationsForCustomer(ctx, customer.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "19:00", list[0].Time)
	assert.Empty(t, list[0].CustomerName)
	assert.Empty(t, list[0].CustomerEmail)

	_, err = f.reservations.ReservationsForCustomer(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "olivia", models.RoleOwner)
	customer := f.user(t, "carl", models.RoleCustomer)
	stranger := f.user(t, "dina", models.RoleCustomer)
	r := f.restaurant(t, owner, "Luigi's", 10)
	booked := f.book(t, customer, r, "19:00", 2)

	_, err := f.reservations.UpdateStatus(ctx, booked.ID, "CONFIRMED", owner.Identity(), "table 4")
	require.NoError(t, err)

	history, err := f.reservations.History(ctx, booked.ID, customer.Identity())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.ReservationStatus(""), history[0].FromStatus)
	assert.Equal(t, models.StatusPending, history[1].FromStatus)
	assert.Equal(t, models.StatusConfirmed, history[1].ToStatus)
	assert.Equal(t, owner.ID, history[1].ChangedBy)
	assert.Equal(t, "table 4", history[1].Note)

	_, err = f.reservations.History(ctx, booked.ID, stranger.Identity())
	assert.ErrorIs(t, err, ErrForbidden)
}
