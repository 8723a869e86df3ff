package routes

import (
	"gocargo/internal/handlers"
	"gocargo/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDispatchRoutes sets up routes for driver assignment
func SetupDispatchRoutes(r *gin.RouterGroup, dispatchHandler *handlers.DispatchHandler, jwtSecret string) {
	// Operator-driven assignment
	admin := r.Group("/dispatch/bookings")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.POST("/:id/auto-assign", dispatchHandler.AutoAssign)
		admin.POST("/:id/manual-assign", dispatchHandler.ManualAssign)
		admin.POST("/:id/broadcast", dispatchHandler.Broadcast)
		admin.POST("/:id/fail", dispatchHandler.MarkFailed)
	}

	// Driver-driven claim on a broadcast offer
	driver := r.Group("/dispatch/bookings")
	driver.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		driver.POST("/:id/accept", dispatchHandler.Accept)
	}
}
