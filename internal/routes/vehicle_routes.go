package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
)

func VehicleRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	vehicle := r.Group("/vehicles")
	{
		vehicle.GET("", ctrl.ListVehicles)
		vehicle.POST("", ctrl.CreateVehicle)
		vehicle.GET("/:id", ctrl.GetVehicle)
		vehicle.PUT("/:id", ctrl.UpdateVehicle)
		vehicle.DELETE("/:id", ctrl.DeleteVehicle)
	}
}
