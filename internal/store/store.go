// Package store persists the tracking domain. Postgres (gorm + PostGIS) is the
// production backend; Memory backs tests and local runs without a database.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"

	"route_tracker/internal/models"
)

// Store is the persistence interface used by the service layer.
type Store interface {
	// WithinTx runs fn against a transactional view of the store. Any error from fn
	// rolls every write back. Nested calls reuse the outer transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error

	// Profiles
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error)
	ListProfiles(ctx context.Context) ([]models.Profile, error)

	// Vehicles
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error)
	ListVehicles(ctx context.Context, profileID uuid.UUID) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, id uuid.UUID) error

	// Streets
	ImportStreets(ctx context.Context, streets []models.Street) (int, error)
	GetStreet(ctx context.Context, id uuid.UUID) (models.Street, error)
	ListStreets(ctx context.Context) ([]models.Street, error)
	FindStreets(ctx context.Context, ids []uuid.UUID) ([]models.Street, error)
	// UnionStreetGeometries returns the set-union of the streets' lines as a
	// MultiLineString, or ErrEmptyUnion when nothing could be derived.
	UnionStreetGeometries(ctx context.Context, ids []uuid.UUID) (geom.T, error)

	// Routes
	// CreateRoute inserts the route together with its Streets association rows.
	CreateRoute(ctx context.Context, r *models.Route) error
	// GetRoute loads the route with its schedules and its streets ordered by position.
	GetRoute(ctx context.Context, id uuid.UUID) (models.Route, error)
	ListRoutes(ctx context.Context, profileID uuid.UUID) ([]models.Route, error)

	// Schedules
	CreateSchedule(ctx context.Context, s *models.Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (models.Schedule, error)
	ListSchedules(ctx context.Context, routeID uuid.UUID) ([]models.Schedule, error)
	UpdateSchedule(ctx context.Context, s *models.Schedule) error
	DeleteSchedule(ctx context.Context, id uuid.UUID) error

	// Runs
	// CreateRun atomically checks that the vehicle has no run in progress and inserts
	// r. It returns ErrActiveRunExists otherwise.
	CreateRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (models.Run, error)
	// CompleteRun moves an in-progress run to completed. It returns ErrRunNotActive
	// when the run is no longer in progress.
	CompleteRun(ctx context.Context, id uuid.UUID, endedAt time.Time) (models.Run, error)
	// ListRunsByProfile and ListRunsByRoute order by start time, newest first.
	ListRunsByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Run, error)
	ListRunsByRoute(ctx context.Context, routeID uuid.UUID) ([]models.Run, error)

	// Positions
	CreatePosition(ctx context.Context, p *models.Position) error
	// ListPositions orders by capture time, oldest first.
	ListPositions(ctx context.Context, runID uuid.UUID) ([]models.Position, error)
}

var (
	ErrNotFound        = errors.New("not found")
	ErrDuplicate       = errors.New("duplicate key")
	ErrActiveRunExists = errors.New("vehicle already has a run in progress")
	ErrRunNotActive    = errors.New("run is not in progress")
	ErrEmptyUnion      = errors.New("street union produced no geometry")
)
