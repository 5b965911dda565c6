package middleware

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"table-reservation-api/models"
	"table-reservation-api/token"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const identityKey = "identity"

// UserLookup resolves the account named by a token subject.
type UserLookup interface {
	UserByUsername(ctx context.Context, username string) (*models.User, error)
}

var (
	publicPaths = map[string]bool{
		"/api/auth/login":    true,
		"/api/auth/register": true,
		"/api/restaurants":   true,
	}
	availabilityPath = regexp.MustCompile(`^/api/restaurants/\d+/availability$`)
)

func isPublic(path string) bool {
	return publicPaths[path] ||
		strings.HasPrefix(path, "/api/restaurants/search/") ||
		availabilityPath.MatchString(path)
}

// Authenticate attaches the caller identity from a Bearer token. It never
// rejects a request: a missing or bad token leaves the request anonymous and
// RoleRequired decides.
func Authenticate(tokens *token.Manager, users UserLookup, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.Next()
			return
		}

		claims, err := tokens.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("ignoring invalid token")
			c.Next()
			return
		}

		user, err := users.UserByUsername(c.Request.Context(), claims.Subject)
		if err != nil {
			logger.Debug().Err(err).Str("username", claims.Subject).Msg("token subject not found")
			c.Next()
			return
		}

		c.Set(identityKey, user.Identity())
		c.Next()
	}
}

// RoleRequired enforces that caller has one of the allowed roles
func RoleRequired(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		who, ok := CurrentIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Access denied. Authentication required"})
			return
		}
		for _, r := range roles {
			if who.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Access denied. Required role(s): " + rolesString(roles),
		})
	}
}

func rolesString(roles []models.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}

// CurrentIdentity returns the caller attached by Authenticate.
func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	val, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	who, ok := val.(models.Identity)
	return who, ok
}
