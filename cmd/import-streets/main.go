// Command import-streets loads a GeoJSON FeatureCollection of named streets into
// the database and clears the street cache.
package main

import (
	"context"
	"flag"
	"os"

	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/cache"
	"route_tracker/internal/config"
	"route_tracker/internal/importer"
	"route_tracker/internal/logger"
	"route_tracker/internal/services"
	"route_tracker/internal/store"
)

func main() {
	file := flag.String("file", "", "path to a GeoJSON FeatureCollection")
	flag.Parse()
	if *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})

	if cfg.StoreBackend != config.BackendPostgres {
		logrus.WithField("backend", cfg.StoreBackend).Fatal("street import needs the postgres backend")
	}

	f, err := os.Open(*file)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open input")
	}
	defer f.Close()

	res, err := importer.ParseStreets(f)
	if err != nil {
		logrus.WithError(err).Fatal("failed to parse streets")
	}
	if len(res.Streets) == 0 {
		logrus.WithField("skipped", res.Skipped).Fatal("no importable streets in input")
	}

	db, err := config.OpenDB(cfg, logger.GormLogger(cfg.DBSlowQuery))
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}

	deps := services.Deps{Store: store.NewPostgres(db)}
	if cfg.RedisEnabled {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logrus.WithError(err).Warn("redis unavailable, street cache not cleared")
		} else {
			defer rc.Close()
			deps.Cache = rc
		}
	}

	n, err := services.New(deps).Streets.Import(context.Background(), res.Streets)
	if err != nil {
		logrus.WithError(err).Fatal("import failed")
	}
	logrus.WithFields(logrus.Fields{"imported": n, "skipped": res.Skipped}).Info("street import complete")
}
