package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"carrental/internal/handler"
	"carrental/internal/metrics"
	"carrental/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RentalHandler  *handler.RentalHandler
	UserHandler    *handler.UserHandler
	Authenticator  middleware.Authenticator
	ResponseCache  middleware.ResponseCache
	NewRelicApp    *newrelic.Application
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	MetricsPath    string
	AllowedOrigins []string
	StorageBackend string
	Logger         *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}
	if deps.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(deps.Metrics))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "OK",
			"database":  deps.StorageBackend,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	if deps.MetricsHandler != nil {
		router.GET(deps.MetricsPath, gin.WrapH(deps.MetricsHandler))
	}

	auth := middleware.Authenticate(deps.Authenticator)
	admin := middleware.RequireAdmin()
	tag := middleware.NewRelicPrincipal()

	users := router.Group("/users")
	{
		users.GET("/me", auth, tag, deps.UserHandler.Me)
	}

	rentals := router.Group("/rentals")
	{
		// Public routes.
		rentals.POST("/:id/availability", deps.RentalHandler.CheckAvailability)
		rentals.GET("/:id/bookings", deps.RentalHandler.GetBookings)

		// Authenticated routes.
		rentals.POST("/:id", auth, tag, middleware.IdempotencyMiddleware(deps.ResponseCache, deps.Logger), deps.RentalHandler.CreateRental)
		rentals.GET("/user", auth, tag, deps.RentalHandler.GetUserRentals)
		rentals.DELETE("/:id", auth, tag, deps.RentalHandler.CancelRental)

		// Admin routes.
		rentals.GET("/all", auth, admin, tag, deps.RentalHandler.GetAllRentals)
		rentals.PUT("/:id", auth, admin, tag, deps.RentalHandler.UpdateRental)
	}

	return router
}
