package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
	"route_tracker/internal/middleware"
)

func AdminRoutes(r *gin.RouterGroup, ctrl *controllers.Controller, auth *middleware.JWT) {
	admin := r.Group("/admin")
	admin.Use(auth.RequireAuthWithRole(middleware.RoleAdmin))
	{
		admin.POST("/profiles", ctrl.CreateProfile)
		admin.GET("/profiles", ctrl.ListProfiles)
	}
}

func ProfileRoutes(r *gin.RouterGroup, ctrl *controllers.Controller) {
	r.GET("/profiles", ctrl.PublicProfiles)
}
