package middleware

import (
	"net/http"

	"table-reservation-api/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RateLimit throttles requests per client IP. A limiter error lets the
// request through.
func RateLimit(limiter ratelimit.Limiter, scope string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Error().Err(err).Str("key", key).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many attempts, please try again later",
			})
			return
		}
		c.Next()
	}
}
