package routes

import (
	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"route_tracker/internal/controllers"
	"route_tracker/internal/logger"
	"route_tracker/internal/metrics"
	"route_tracker/internal/middleware"
)

// SetupRouter wires every route group onto a new engine. limiter may be nil.
func SetupRouter(ctrl *controllers.Controller, auth *middleware.JWT, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(logger.Writer()),
		ginlog.WithSkipPath([]string{"/healthz", "/metrics"}),
		ginlog.WithUTC(true),
	))
	r.Use(metrics.Middleware())

	OpsRoutes(r, ctrl)

	api := r.Group("/")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	AdminRoutes(api, ctrl, auth)
	ProfileRoutes(api, ctrl)
	VehicleRoutes(api, ctrl)
	StreetRoutes(api, ctrl)
	RouteRoutes(api, ctrl)
	ScheduleRoutes(api, ctrl)
	RunRoutes(api, ctrl)

	return r
}
