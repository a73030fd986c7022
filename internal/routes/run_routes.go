package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
)

func RunRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	runs := r.Group("/runs")
	{
		runs.POST("/start", ctrl.StartRun)
		runs.GET("/mine", ctrl.MyRuns)
		runs.GET("/routes/:route_id", ctrl.RouteRuns)
		runs.POST("/:id/finalize", ctrl.FinalizeRun)
		runs.POST("/:id/positions", ctrl.RecordPosition)
		runs.GET("/:id/positions", ctrl.ListPositions)
	}
}
