package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
)

func RouteRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	routes := r.Group("/routes")
	{
		routes.GET("", ctrl.ListRoutes)
		routes.POST("", ctrl.CreateRoute)
		routes.GET("/:id", ctrl.GetRoute)
		routes.GET("/:id/schedules", ctrl.ListSchedules)
		routes.POST("/:id/schedules", ctrl.CreateSchedule)
	}
}

func ScheduleRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	schedules := r.Group("/schedules")
	{
		schedules.PUT("/:id", ctrl.UpdateSchedule)
		schedules.DELETE("/:id", ctrl.DeleteSchedule)
	}
}
