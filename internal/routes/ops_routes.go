package routes

import (
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
	"route_tracker/internal/metrics"
)

// OpsRoutes are mounted outside the rate limiter.
func OpsRoutes(r *gin.Engine, ctrl *controllers.Controller) {
	r.GET("/healthz", ctrl.Healthz)
	r.GET("/readyz", ctrl.Readyz)
	r.GET("/version", ctrl.Version)
	r.GET("/metrics", metrics.Handler())
}
