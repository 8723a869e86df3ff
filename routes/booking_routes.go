package routes

import (
	"gocargo/internal/handlers"
	"gocargo/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes sets up routes for booking lifecycle operations
func SetupBookingRoutes(r *gin.RouterGroup, bookingHandler *handlers.BookingHandler, jwtSecret string) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthRequired(jwtSecret))
	{
		bookings.POST("/quote", bookingHandler.GetQuote)
		bookings.POST("/", bookingHandler.CreateBooking)
		bookings.GET("/", bookingHandler.ListMyBookings)
		bookings.GET("/:id", bookingHandler.GetBooking)
		bookings.GET("/code/:code", bookingHandler.GetBookingByCode)

		// Lifecycle: cancellation is user-facing, forward transitions are
		// driven by drivers and the proof-of-delivery workflow.
		bookings.PUT("/:id/status", bookingHandler.Transition)
		bookings.PUT("/:id/cancel", bookingHandler.CancelBooking)
		bookings.POST("/:id/rate", bookingHandler.RateBooking)
	}

	// Payment settlement callback from the payment collaborator.
	payments := r.Group("/bookings")
	payments.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		payments.PUT("/:id/payment/confirm", bookingHandler.ConfirmPayment)
	}
}
