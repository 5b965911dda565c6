package services

import (
	"context"
	"fmt"
	"strings"

	"table-reservation-api/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// RestaurantInput is the full set of writable restaurant fields.
type RestaurantInput struct {
	Name      string
	Location  string
	Cuisine   string
	Capacity  int
	OwnerID   uint
	Available *bool
}

type RestaurantService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewRestaurantService(db *gorm.DB, logger zerolog.Logger) *RestaurantService {
	return &RestaurantService{db: db, logger: logger.With().Str("component", "restaurants").Logger()}
}

func (s *RestaurantService) AddRestaurant(ctx context.Context, in RestaurantInput) (*models.Restaurant, error) {
	if err := validateRestaurant(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	owner, err := findUser(db, in.OwnerID, "Owner not found")
	if err != nil {
		return nil, err
	}

	restaurant := models.Restaurant{
		Name:      in.Name,
		Location:  in.Location,
		Cuisine:   in.Cuisine,
		Capacity:  in.Capacity,
		Available: in.Available == nil || *in.Available,
		OwnerID:   owner.ID,
	}
	if err := db.Create(&restaurant).Error; err != nil {
		return nil, fmt.Errorf("create restaurant: %w", err)
	}
	restaurant.Owner = owner

	s.logger.Info().Uint("restaurant_id", restaurant.ID).Uint("owner_id", owner.ID).Msg("restaurant created")
	return &restaurant, nil
}

// UpdateRestaurant overwrites name, location, cuisine, capacity and owner.
func (s *RestaurantService) UpdateRestaurant(ctx context.Context, id uint, in RestaurantInput) (*models.Restaurant, error) {
	if err := validateRestaurant(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	restaurant, err := s.RestaurantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner, err := findUser(db, in.OwnerID, "Owner not found")
	if err != nil {
		return nil, err
	}

	restaurant.Name = in.Name
	restaurant.Location = in.Location
	restaurant.Cuisine = in.Cuisine
	restaurant.Capacity = in.Capacity
	restaurant.OwnerID = owner.ID
	restaurant.Owner = nil
	if err := db.Save(restaurant).Error; err != nil {
		return nil, fmt.Errorf("save restaurant: %w", err)
	}
	restaurant.Owner = owner
	return restaurant, nil
}

// DeleteRestaurant removes any restaurant and its reservations.
func (s *RestaurantService) DeleteRestaurant(ctx context.Context, id uint) error {
	if _, err := s.RestaurantByID(ctx, id); err != nil {
		return err
	}
	return s.deleteCascade(ctx, id)
}

// DeleteMyRestaurant removes a restaurant only if ownerID owns it.
func (s *RestaurantService) DeleteMyRestaurant(ctx context.Context, id, ownerID uint) error {
	restaurant, err := s.RestaurantByID(ctx, id)
	if err != nil {
		return err
	}
	if restaurant.OwnerID != ownerID {
		return forbiddenError("You are not the owner of this restaurant")
	}
	return s.deleteCascade(ctx, id)
}

func (s *RestaurantService) deleteCascade(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := purgeReservations(tx, "restaurant_id = ?", id); err != nil {
			return err
		}
		return tx.Delete(&models.Restaurant{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete restaurant: %w", err)
	}
	s.logger.Info().Uint("restaurant_id", id).Msg("restaurant deleted")
	return nil
}

func (s *RestaurantService) Restaurants(ctx context.Context) ([]models.Restaurant, error) {
	return s.find(s.db.WithContext(ctx))
}

func (s *RestaurantService) RestaurantByID(ctx context.Context, id uint) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).Preload("Owner").First(&restaurant, id).Error; err != nil {
		return nil, notFoundOr(err, "Restaurant not found")
	}
	return &restaurant, nil
}

// SearchByLocation matches a case-insensitive substring of the location.
func (s *RestaurantService) SearchByLocation(ctx context.Context, location string) ([]models.Restaurant, error) {
	return s.find(s.db.WithContext(ctx).Where(`LOWER(location) LIKE ? ESCAPE '\'`, containsPattern(location)))
}

// SearchByCuisine matches a case-insensitive substring of the cuisine.
func (s *RestaurantService) SearchByCuisine(ctx context.Context, cuisine string) ([]models.Restaurant, error) {
	return s.find(s.db.WithContext(ctx).Where(`LOWER(cuisine) LIKE ? ESCAPE '\'`, containsPattern(cuisine)))
}

func (s *RestaurantService) RestaurantsByOwner(ctx context.Context, ownerID uint) ([]models.Restaurant, error) {
	return s.find(s.db.WithContext(ctx).Where("owner_id = ?", ownerID))
}

// UpdateAvailability toggles whether new bookings are accepted.
func (s *RestaurantService) UpdateAvailability(ctx context.Context, id uint, available bool, ownerID uint) (*models.Restaurant, error) {
	restaurant, err := s.RestaurantByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if restaurant.OwnerID != ownerID {
		return nil, forbiddenError("You are not the owner of this restaurant")
	}
	if err := s.db.WithContext(ctx).Model(restaurant).Update("available", available).Error; err != nil {
		return nil, fmt.Errorf("update availability: %w", err)
	}
	restaurant.Available = available
	s.logger.Info().Uint("restaurant_id", id).Bool("available", available).Msg("availability changed")
	return restaurant, nil
}

// AvailableCapacity returns the seats left for a slot: capacity minus the
// party sizes of non-cancelled reservations, never below zero.
func (s *RestaurantService) AvailableCapacity(ctx context.Context, id uint, date, clock string) (int, error) {
	date, clock, err := normalizeSlot(date, clock)
	if err != nil {
		return 0, err
	}
	restaurant, err := s.RestaurantByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return availableSeats(s.db.WithContext(ctx), restaurant, date, clock)
}

func (s *RestaurantService) find(query *gorm.DB) ([]models.Restaurant, error) {
	restaurants := []models.Restaurant{}
	if err := query.Preload("Owner").Order("id").Find(&restaurants).Error; err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	return restaurants, nil
}

func availableSeats(db *gorm.DB, restaurant *models.Restaurant, date, clock string) (int, error) {
	var reserved int64
	err := db.Model(&models.Reservation{}).
		Where("restaurant_id = ? AND date = ? AND time = ? AND status <> ?", restaurant.ID, date, clock, models.StatusCancelled).
		Select("COALESCE(SUM(party_size), 0)").
		Scan(&reserved).Error
	if err != nil {
		return 0, fmt.Errorf("sum reserved seats: %w", err)
	}
	return max(0, restaurant.Capacity-int(reserved)), nil
}

// purgeReservations deletes the matching reservations and their history.
func purgeReservations(tx *gorm.DB, query string, args ...interface{}) error {
	var ids []uint
	if err := tx.Model(&models.Reservation{}).Where(query, args...).Pluck("id", &ids).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("reservation_id IN ?", ids).Delete(&models.ReservationStatusHistory{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Reservation{}).Error
}

func validateRestaurant(in RestaurantInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("Restaurant name is required")
	}
	if in.Capacity < 1 {
		return validationError("Capacity must be a positive number of seats")
	}
	return nil
}

func findUser(db *gorm.DB, id uint, msg string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, msg)
	}
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally as a substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(s))) + "%"
}
