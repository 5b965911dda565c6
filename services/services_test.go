package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"table-reservation-api/config"
	"table-reservation-api/models"
	"table-reservation-api/token"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, time.June, 1, 12, 0, 0, 0, time.Local)

const bookingDate = "2026-06-10"

type fixture struct {
	db           *gorm.DB
	tokens       *token.Manager
	auth         *AuthService
	restaurants  *RestaurantService
	reservations *ReservationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := config.OpenDatabase(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "reservations.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = config.CloseDatabase(db) })

	logger := zerolog.Nop()
	tokens := token.NewManager("test-secret", time.Hour)
	return &fixture{
		db:           db,
		tokens:       tokens,
		auth:         NewAuthService(db, tokens, logger).WithHashCost(bcrypt.MinCost),
		restaurants:  NewRestaurantService(db, logger),
		reservations: NewReservationService(db, logger).WithClock(func() time.Time { return testNow }),
	}
}

func (f *fixture) user(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
		Role:     string(role),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) restaurant(t *testing.T, owner *models.User, name string, capacity int) *models.Restaurant {
	t.Helper()
	r, err := f.restaurants.AddRestaurant(context.Background(), RestaurantInput{
		Name:     name,
		Location: "Downtown Springfield",
		Cuisine:  "Italian",
		Capacity: capacity,
		OwnerID:  owner.ID,
	})
	require.NoError(t, err)
	return r
}

// seed inserts a reservation directly, bypassing the booking checks.
func (f *fixture) seed(t *testing.T, customer *models.User, restaurant *models.Restaurant, clock string, party int, status models.ReservationStatus) *models.Reservation {
	t.Helper()
	r := &models.Reservation{
		CustomerID:   customer.ID,
		RestaurantID: restaurant.ID,
		Date:         bookingDate,
		Time:         clock,
		PartySize:    party,
		Status:       status,
	}
	require.NoError(t, f.db.Create(r).Error)
	return r
}

func (f *fixture) book(t *testing.T, customer *models.User, restaurant *models.Restaurant, clock string, party int) *models.ReservationResponse {
	t.Helper()
	resp, err := f.reservations.CreateReservation(context.Background(), customer.ID, ReservationRequest{
		RestaurantID: restaurant.ID,
		Date:         bookingDate,
		Time:         clock,
		PartySize:    party,
	})
	require.NoError(t, err)
	return resp
}
