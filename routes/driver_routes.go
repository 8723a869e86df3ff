package routes

import (
	"gocargo/internal/handlers"
	"gocargo/internal/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDriverRoutes sets up routes for driver availability and location
func SetupDriverRoutes(r *gin.RouterGroup, driverHandler *handlers.DriverHandler, jwtSecret string) {
	drivers := r.Group("/drivers")
	drivers.Use(middleware.AuthRequired(jwtSecret))
	{
		drivers.GET("/nearby", driverHandler.NearbyDrivers)
		drivers.GET("/:id", driverHandler.GetDriver)
	}

	// Driver self-service
	me := r.Group("/drivers")
	me.Use(middleware.AuthRequired(jwtSecret), middleware.DriverRequired())
	{
		me.PUT("/location", driverHandler.UpdateLocation)
		me.PUT("/availability", driverHandler.SetAvailability)
		me.GET("/deliveries", driverHandler.ListMyDeliveries)
	}

	admin := r.Group("/admin/drivers")
	admin.Use(middleware.AuthRequired(jwtSecret), middleware.AdminRequired())
	{
		admin.GET("/", driverHandler.ListDrivers)
	}
}
