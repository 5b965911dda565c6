package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"table-reservation-api/config"
	"table-reservation-api/handlers"
	"table-reservation-api/logging"
	"table-reservation-api/metrics"
	"table-reservation-api/middleware"
	"table-reservation-api/ratelimit"
	"table-reservation-api/routes"
	"table-reservation-api/services"
	"table-reservation-api/token"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}
	logger := baseLogger.With().Str("component", "main").Logger()

	if cfg.JWT.UsingDevSecret {
		logger.Warn().Msg("JWT_SECRET_KEY is not set; using the built-in development secret")
	}

	// Initialize database
	db, err := config.OpenDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = config.CloseDatabase(db) }()
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	authService := services.NewAuthService(db, tokens, baseLogger)
	restaurantService := services.NewRestaurantService(db, baseLogger)
	reservationService := services.NewReservationService(db, baseLogger)

	created, err := authService.EnsureAdmin(ctx, services.AdminAccount{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	})
	if err != nil {
		return err
	}
	if !created {
		logger.Info().Msg("admin account present, skipping bootstrap")
	}

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(baseLogger.With().Str("component", "access").Logger()))

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome to the Restaurant Table Reservation API",
			"docs":    "/api/state-machine",
			"health":  "/health",
			"roles":   []string{"ADMIN", "OWNER", "CUSTOMER"},
		})
	})
	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	h := handlers.New(authService, restaurantService, reservationService, baseLogger)
	authenticate := middleware.Authenticate(tokens, authService, baseLogger.With().Str("component", "auth-filter").Logger())
	loginLimit, closeLimiter := loginLimiter(ctx, cfg, logger)
	defer closeLimiter()
	routes.SetupRoutes(r, h, authenticate, loginLimit)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// loginLimiter throttles login attempts per client, sharing counters through
// redis when it is reachable and falling back to process memory otherwise.
// The returned func releases the redis connection.
func loginLimiter(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (gin.HandlerFunc, func()) {
	cleanup := func() {}
	if !cfg.RateLimit.Enabled {
		return func(c *gin.Context) { c.Next() }, cleanup
	}

	memory := ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	var limiter ratelimit.Limiter = memory
	if cfg.Redis.Address != "" {
		client := ratelimit.NewRedisClient(cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := ratelimit.Ping(pingCtx, client); err != nil {
			_ = client.Close()
			logger.Warn().Err(err).Str("address", cfg.Redis.Address).Msg("redis unavailable, login throttling is per instance")
		} else {
			primary := ratelimit.NewRedisLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
			limiter = ratelimit.NewFailoverLimiter(primary, memory, logger)
			cleanup = func() { _ = client.Close() }
			logger.Info().Str("address", cfg.Redis.Address).Msg("login throttling backed by redis")
		}
	}
	return middleware.RateLimit(limiter, "login", logger), cleanup
}
