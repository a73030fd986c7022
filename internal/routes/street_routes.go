package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
)

func StreetRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	streets := r.Group("/streets")
	{
		streets.GET("", ctrl.ListStreets)
		streets.GET("/:id", ctrl.GetStreet)
	}
}
