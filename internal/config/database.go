package config

import (
	"fmt"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

// OpenDB connects to Postgres, enables PostGIS and, when asked, migrates the schema.
func OpenDB(cfg *Config, log gormlogger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS postgis;").Error; err != nil {
		return nil, fmt.Errorf("enable postgis: %w", err)
	}

	if cfg.DBAutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates every table plus the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Profile{},
		&models.Vehicle{},
		&models.Street{},
		&models.Route{},
		&models.RouteStreet{},
		&models.Schedule{},
		&models.Run{},
		&models.Position{},
	)
	if err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}

	stmts := []string{
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON runs (vehicle_id) WHERE state = 'in_progress'`, store.ActiveRunIndex),
		// older schemas carried a plain unique index that also covered deleted rows
		`DROP INDEX IF EXISTS idx_vehicles_plate`,
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS %s ON vehicles (plate) WHERE deleted_at IS NULL`, store.LivePlateIndex),
		`CREATE INDEX IF NOT EXISTS idx_streets_shape ON streets USING GIST (shape)`,
		`CREATE INDEX IF NOT EXISTS idx_routes_shape ON routes USING GIST (shape)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_point ON positions USING GIST (point)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migrate %q: %w", stmt, err)
		}
	}
	logrus.Info("database schema is up to date")
	return nil
}
