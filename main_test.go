package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"table-reservation-api/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLimiterReleasesRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	cfg := &config.Config{
		Redis:     config.RedisConfig{Address: s.Addr(), PoolSize: 2},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 2, Window: time.Minute},
	}
	limit, cleanup := loginLimiter(context.Background(), cfg, zerolog.Nop())

	r := gin.New()
	r.POST("/login", limit, func(c *gin.Context) { c.Status(http.StatusOK) })
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.NotZero(t, s.CurrentConnectionCount())

	cleanup()
	assert.Eventually(t, func() bool { return s.CurrentConnectionCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLoginLimiterDisabled(t *testing.T) {
	limit, cleanup := loginLimiter(context.Background(), &config.Config{}, zerolog.Nop())
	require.NotNil(t, limit)
	cleanup()
}
