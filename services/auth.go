package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"table-reservation-api/metrics"
	"table-reservation-api/models"
	"table-reservation-api/token"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLength = 6
	// bcrypt refuses longer input
	maxPasswordLength = 72
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// UserPatch carries the profile fields an admin may change. Empty fields
// are left untouched.
type UserPatch struct {
	Username string
	Email    string
}

// AdminAccount is the bootstrap administrator created on first start.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// AuthService owns user accounts and session tokens.
type AuthService struct {
	db       *gorm.DB
	tokens   *token.Manager
	logger   zerolog.Logger
	hashCost int
}

func NewAuthService(db *gorm.DB, tokens *token.Manager, logger zerolog.Logger) *AuthService {
	return &AuthService{
		db:       db,
		tokens:   tokens,
		logger:   logger.With().Str("component", "auth").Logger(),
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, validationError("Invalid role. Must be one of: ADMIN, OWNER, CUSTOMER")
	}
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := s.checkUnique(db, in.Username, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflictError("Username or email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Str("role", string(role)).Msg("user registered")
	return &user, nil
}

// Login verifies credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	invalid := &Error{Kind: KindUnauthorized, Message: "Invalid username or password"}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			metrics.IncLogin("failure")
			return "", nil, invalid
		}
		return "", nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.IncLogin("failure")
		s.logger.Warn().Str("username", username).Msg("login rejected: password mismatch")
		return "", nil, invalid
	}

	signed, err := s.tokens.Issue(user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}
	metrics.IncLogin("success")
	return signed, &user, nil
}

func (s *AuthService) Users(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AuthService) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

func (s *AuthService) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

// DeleteUser removes the user together with the reservations they made and
// the restaurants they own.
func (s *AuthService) DeleteUser(ctx context.Context, id uint) error {
	if _, err := s.UserByID(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var restaurantIDs []uint
		if err := tx.Model(&models.Restaurant{}).Where("owner_id = ?", id).Pluck("id", &restaurantIDs).Error; err != nil {
			return err
		}
		if err := purgeReservations(tx, "customer_id = ?", id); err != nil {
			return err
		}
		if len(restaurantIDs) > 0 {
			if err := purgeReservations(tx, "restaurant_id IN ?", restaurantIDs); err != nil {
				return err
			}
			if err := tx.Where("id IN ?", restaurantIDs).Delete(&models.Restaurant{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info().Uint("user_id", id).Msg("user deleted")
	return nil
}

func (s *AuthService) ChangeUserRole(ctx context.Context, id uint, roleName string) (*models.User, error) {
	role, ok := models.ParseRole(roleName)
	if !ok {
		return nil, validationError("Invalid role. Must be one of: ADMIN, OWNER, CUSTOMER")
	}
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	s.logger.Info().Uint("user_id", id).Str("role", string(role)).Msg("user role changed")
	return user, nil
}

func (s *AuthService) ChangeUserPassword(ctx context.Context, id uint, password string) error {
	if err := checkPassword(password); err != nil {
		return err
	}
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *AuthService) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	user, err := s.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	username, email := "", ""
	if patch.Username != "" && patch.Username != user.Username {
		username = patch.Username
	}
	if patch.Email != "" && patch.Email != user.Email {
		email = patch.Email
	}

	db := s.db.WithContext(ctx)
	if err := s.checkUnique(db, username, email, user.ID); err != nil {
		return nil, err
	}
	if username != "" {
		user.Username = username
	}
	if email != "" {
		user.Email = email
	}
	if err := db.Save(user).Error; err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap administrator when no ADMIN account
// exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, admin AdminAccount) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	_, err := s.Register(ctx, RegisterInput{
		Username: admin.Username,
		Email:    admin.Email,
		Password: admin.Password,
		Role:     string(models.RoleAdmin),
	})
	if errors.Is(err, ErrConflict) {
		s.logger.Warn().Str("username", admin.Username).Str("reason", err.Error()).
			Msg("bootstrap admin not created; the configured account is held by a non-admin user")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Warn().Str("username", admin.Username).Msg("bootstrap admin account created; change its password")
	return true, nil
}

// checkPassword enforces the password length bounds.
func checkPassword(password string) error {
	if len(password) < minPasswordLength {
		return validationError(fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if len(password) > maxPasswordLength {
		return validationError(fmt.Sprintf("Password must be at most %d bytes", maxPasswordLength))
	}
	return nil
}

// checkUnique rejects a username or email already used by another user.
// Empty values are skipped.
func (s *AuthService) checkUnique(db *gorm.DB, username, email string, exceptID uint) error {
	if username != "" {
		taken, err := exists(db.Model(&models.User{}).Where("username = ? AND id <> ?", username, exceptID))
		if err != nil {
			return err
		}
		if taken {
			return conflictError("Username already exists")
		}
	}
	if email != "" {
		taken, err := exists(db.Model(&models.User{}).Where("LOWER(email) = ? AND id <> ?", strings.ToLower(email), exceptID))
		if err != nil {
			return err
		}
		if taken {
			return conflictError("Email already registered")
		}
	}
	return nil
}

func (s *AuthService) hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func exists(query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return count > 0, nil
}
