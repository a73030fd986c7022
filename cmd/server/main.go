package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/buildinfo"
	"route_tracker/internal/cache"
	"route_tracker/internal/config"
	"route_tracker/internal/controllers"
	"route_tracker/internal/events"
	"route_tracker/internal/logger"
	"route_tracker/internal/metrics"
	"route_tracker/internal/middleware"
	"route_tracker/internal/routes"
	"route_tracker/internal/services"
	"route_tracker/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}

	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	gin.SetMode(cfg.GinMode)

	info := buildinfo.Get()
	logrus.WithFields(logrus.Fields{
		"version":   info.Version,
		"commit":    info.Commit,
		"http_addr": cfg.HTTPAddr,
		"backend":   cfg.StoreBackend,
	}).Info("starting route tracker")

	st, err := openStore(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open store")
	}

	deps := services.Deps{Store: st, CacheTTL: cfg.CacheTTL}

	if cfg.RedisEnabled {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, serving streets uncached")
		} else {
			defer rc.Close()
			deps.Cache = rc
		}
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			logrus.WithError(err).Warn("nats unavailable, run events disabled")
		} else {
			defer pub.Close()
			deps.Events = pub
		}
	}

	metrics.RegisterDefault()

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute, cfg.RateLimitWhitelist)
		defer limiter.Close()
	}

	ctrl := controllers.New(services.New(deps), st, cfg.Debug)
	r := routes.SetupRouter(ctrl, middleware.NewJWT(cfg.JWTSecret), limiter)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      middleware.EnableCORS(r, cfg.CORSAllowedOrigins),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logrus.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logrus.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
	}
	logrus.Info("shutdown complete")
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.StoreBackend == config.BackendMemory {
		logrus.Warn("using the in-memory store, data is lost on restart")
		return store.NewMemory(), nil
	}
	db, err := config.OpenDB(cfg, logger.GormLogger(cfg.DBSlowQuery))
	if err != nil {
		return nil, err
	}
	return store.NewPostgres(db), nil
}
