package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/tablebooker/config"
	"github.com/ds124wfegd/tablebooker/internal/service"
	"github.com/ds124wfegd/tablebooker/internal/transport/middleware"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Shops        *ShopHandler
	Reservations *ReservationHandler
	Bookings     *BookingHandler
	DeadLetter   *DeadLetterHandler
}

func NewHandlers(services *service.Service) *Handlers {
	return &Handlers{
		Shops:        NewShopHandler(services.Shops),
		Reservations: NewReservationHandler(services.Reservations),
		Bookings:     NewBookingHandler(services.Bookings),
	}
}

// WithDeadLetter enables the admin view of parked events
func (h *Handlers) WithDeadLetter(reader DeadLetterReader) *Handlers {
	h.DeadLetter = NewDeadLetterHandler(reader)
	return h
}

func InitRoutes(h *Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	// API routes
	api := router.Group("/api/v1")
	{
		// Shop routes
		shops := api.Group("/shops")
		{
			shops.POST("", h.Shops.CreateShop)
			shops.GET("/:id", h.Shops.GetShop)
			shops.PUT("/:id/hours", h.Shops.UpdateHours)
			shops.GET("/:id/slots", h.Shops.ListSlots)
			shops.GET("/:id/slots/:slot_id/bookings", h.Bookings.GetSlotBookings)

			shops.POST("/:id/table-types", h.Shops.CreateTableType)
			shops.GET("/:id/table-types", h.Shops.ListTableTypes)

			shops.POST("/:id/reservations", limiter.Limit(), h.Reservations.Reserve)
			shops.POST("/:id/reservations/quote", h.Reservations.Quote)
		}

		// Booking routes
		bookings := api.Group("/bookings")
		{
			bookings.GET("/:id", h.Bookings.GetBooking)
			bookings.GET("/code/:code", h.Bookings.GetBookingByCode)
			bookings.GET("/code/:code/qr", h.Bookings.GetBookingQR)
			bookings.POST("/:id/confirm", h.Bookings.ConfirmBooking)
			bookings.POST("/:id/cancel", h.Bookings.CancelBooking)
		}

		if h.DeadLetter != nil {
			api.GET("/admin/dead-letter", h.DeadLetter.List)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":    "ok",
			"version":   cfg.Server.AppVersion,
			"timestamp": time.Now().UTC(),
		}
		if h.DeadLetter != nil {
			body["dead_letter"] = h.DeadLetter.size(c.Request.Context())
		}
		c.JSON(http.StatusOK, body)
	})

	return router
}
