package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"charter/internal/handler"
	"charter/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	QuoteHandler       *handler.QuoteHandler
	ReservationHandler *handler.ReservationHandler
	DriverHandler      *handler.DriverHandler
	PaymentHandler     *handler.PaymentHandler
	WSHandler          *handler.WSHandler
	RedisClient        *redis.Client
	NewRelicApp        *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check and metrics.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Quote routes.
		quotes := v1.Group("/quotes")
		{
			quotes.POST("", deps.QuoteHandler.CreateQuote)
			quotes.GET("/:id", deps.QuoteHandler.GetQuote)
			quotes.POST("/:id/submit", deps.QuoteHandler.Submit)
			quotes.POST("/:id/recalculate", deps.QuoteHandler.Recalculate)
			quotes.POST("/:id/pay", deps.PaymentHandler.PayQuote)
		}

		// Reservation routes.
		reservations := v1.Group("/reservations")
		{
			reservations.GET("/:id", deps.ReservationHandler.GetReservation)
			reservations.POST("/:id/start", deps.ReservationHandler.StartTrip)
			reservations.POST("/:id/end", deps.ReservationHandler.EndTrip)
			reservations.POST("/:id/location", deps.ReservationHandler.UpdateLocation)
			reservations.GET("/:id/location", deps.ReservationHandler.GetLocation)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.POST("", deps.DriverHandler.CreateDriver)
			drivers.GET("", deps.DriverHandler.GetAll)
			drivers.GET("/:id", deps.DriverHandler.GetDriver)
			drivers.PUT("/:id/availability", deps.DriverHandler.SetAvailability)
		}

		// Payment gateway callback.
		v1.POST("/payments/webhook", deps.PaymentHandler.Webhook)

		// Lifecycle event subscriptions.
		v1.GET("/ws/:principal_id", deps.WSHandler.Subscribe)
	}

	return router
}
