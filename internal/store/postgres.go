package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/twpayne/go-geom"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"route_tracker/internal/geo"
	"route_tracker/internal/models"
)

const (
	// ActiveRunIndex enforces one in-progress run per vehicle at the database level.
	ActiveRunIndex = "runs_one_in_progress_per_vehicle"
	// LivePlateIndex keeps plates unique among vehicles that are not soft-deleted,
	// so a deleted vehicle's plate can be registered again.
	LivePlateIndex = "vehicles_plate_live"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres implements Store on top of gorm and PostGIS.
type Postgres struct {
	db *gorm.DB
}

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

// translate maps gorm and Postgres errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == ActiveRunIndex {
				return ErrActiveRunExists
			}
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func (p *Postgres) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Postgres{db: tx})
	})
}

func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// --- Profiles ---

func (p *Postgres) CreateProfile(ctx context.Context, prof *models.Profile) error {
	return translate(p.db.WithContext(ctx).Create(prof).Error)
}

func (p *Postgres) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	var prof models.Profile
	err := p.db.WithContext(ctx).First(&prof, "id = ?", id).Error
	return prof, translate(err)
}

func (p *Postgres) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	var out []models.Profile
	err := p.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translate(err)
}

// --- Vehicles ---

func (p *Postgres) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	return translate(p.db.WithContext(ctx).Omit(clause.Associations).Create(v).Error)
}

func (p *Postgres) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	var v models.Vehicle
	err := p.db.WithContext(ctx).First(&v, "id = ?", id).Error
	return v, translate(err)
}

func (p *Postgres) ListVehicles(ctx context.Context, profileID uuid.UUID) ([]models.Vehicle, error) {
	var out []models.Vehicle
	err := p.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("plate").Find(&out).Error
	return out, translate(err)
}

func (p *Postgres) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	res := p.db.WithContext(ctx).Model(v).Select("plate", "make", "model", "active").Updates(v)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	res := p.db.WithContext(ctx).Delete(&models.Vehicle{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Streets ---

func (p *Postgres) ImportStreets(ctx context.Context, streets []models.Street) (int, error) {
	if len(streets) == 0 {
		return 0, nil
	}
	res := p.db.WithContext(ctx).CreateInBatches(&streets, 200)
	return int(res.RowsAffected), translate(res.Error)
}

func (p *Postgres) GetStreet(ctx context.Context, id uuid.UUID) (models.Street, error) {
	var s models.Street
	err := p.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return s, translate(err)
}

func (p *Postgres) ListStreets(ctx context.Context) ([]models.Street, error) {
	var out []models.Street
	err := p.db.WithContext(ctx).Order("name").Find(&out).Error
	return out, translate(err)
}

func (p *Postgres) FindStreets(ctx context.Context, ids []uuid.UUID) ([]models.Street, error) {
	var out []models.Street
	if len(ids) == 0 {
		return out, nil
	}
	err := p.db.WithContext(ctx).Where("id = ANY(?::uuid[])", pq.Array(uuidStrings(ids))).Find(&out).Error
	return out, translate(err)
}

// UnionStreetGeometries delegates the union to PostGIS. Only the linear parts of the
// union are kept and the result is always a MultiLineString.
func (p *Postgres) UnionStreetGeometries(ctx context.Context, ids []uuid.UUID) (geom.T, error) {
	if len(ids) == 0 {
		return nil, ErrEmptyUnion
	}
	var hex sql.NullString
	row := p.db.WithContext(ctx).Raw(
		`SELECT ST_AsHexEWKB(ST_Multi(ST_CollectionExtract(ST_Union(shape), 2)))
		   FROM streets
		  WHERE id = ANY(?::uuid[])`,
		pq.Array(uuidStrings(ids)),
	).Row()
	if err := row.Scan(&hex); err != nil {
		return nil, translate(err)
	}
	if !hex.Valid || hex.String == "" {
		return nil, ErrEmptyUnion
	}
	var g geo.Geometry
	if err := g.Scan(hex.String); err != nil {
		return nil, err
	}
	if mls, ok := g.T.(*geom.MultiLineString); !ok || mls.NumLineStrings() == 0 {
		return nil, ErrEmptyUnion
	}
	return g.T, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// --- Routes ---

func (p *Postgres) CreateRoute(ctx context.Context, r *models.Route) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		links := r.Streets
		if err := tx.Omit(clause.Associations).Create(r).Error; err != nil {
			return translate(err)
		}
		for i := range links {
			links[i].RouteID = r.ID
		}
		if len(links) > 0 {
			if err := tx.Omit(clause.Associations).Create(&links).Error; err != nil {
				return translate(err)
			}
		}
		r.Streets = links
		return nil
	})
}

func (p *Postgres) GetRoute(ctx context.Context, id uuid.UUID) (models.Route, error) {
	var r models.Route
	err := p.db.WithContext(ctx).
		Preload("Streets", func(db *gorm.DB) *gorm.DB {
			return db.Order("route_streets.position ASC, route_streets.id ASC")
		}).
		Preload("Streets.Street").
		Preload("Schedules", func(db *gorm.DB) *gorm.DB {
			return db.Order("schedules.day_of_week ASC, schedules.start_time ASC")
		}).
		First(&r, "id = ?", id).Error
	return r, translate(err)
}

func (p *Postgres) ListRoutes(ctx context.Context, profileID uuid.UUID) ([]models.Route, error) {
	var out []models.Route
	err := p.db.WithContext(ctx).
		Select("id", "profile_id", "name", "color", "created_at", "updated_at").
		Where("profile_id = ?", profileID).
		Order("created_at").
		Find(&out).Error
	return out, translate(err)
}

// --- Schedules ---

func (p *Postgres) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	return translate(p.db.WithContext(ctx).Create(s).Error)
}

func (p *Postgres) GetSchedule(ctx context.Context, id uuid.UUID) (models.Schedule, error) {
	var s models.Schedule
	err := p.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return s, translate(err)
}

func (p *Postgres) ListSchedules(ctx context.Context, routeID uuid.UUID) ([]models.Schedule, error) {
	var out []models.Schedule
	err := p.db.WithContext(ctx).Where("route_id = ?", routeID).Order("day_of_week, start_time").Find(&out).Error
	return out, translate(err)
}

func (p *Postgres) UpdateSchedule(ctx context.Context, s *models.Schedule) error {
	res := p.db.WithContext(ctx).Model(s).Select("day_of_week", "start_time", "end_time").Updates(s)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	res := p.db.WithContext(ctx).Delete(&models.Schedule{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Runs ---

// CreateRun locks the vehicle row so concurrent starts for one vehicle queue up
// behind each other. ActiveRunIndex backs the check if the lock is ever bypassed.
func (p *Postgres) CreateRun(ctx context.Context, r *models.Run) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var v models.Vehicle
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			First(&v, "id = ?", r.VehicleID).Error
		if err != nil {
			return translate(err)
		}

		var active int64
		err = tx.Model(&models.Run{}).
			Where("vehicle_id = ? AND state = ?", r.VehicleID, models.RunInProgress).
			Count(&active).Error
		if err != nil {
			return translate(err)
		}
		if active > 0 {
			return ErrActiveRunExists
		}

		return translate(tx.Omit(clause.Associations).Create(r).Error)
	})
}

func (p *Postgres) GetRun(ctx context.Context, id uuid.UUID) (models.Run, error) {
	var r models.Run
	err := p.db.WithContext(ctx).First(&r, "id = ?", id).Error
	return r, translate(err)
}

func (p *Postgres) CompleteRun(ctx context.Context, id uuid.UUID, endedAt time.Time) (models.Run, error) {
	res := p.db.WithContext(ctx).
		Model(&models.Run{}).
		Where("id = ? AND state = ?", id, models.RunInProgress).
		Updates(map[string]any{"state": models.RunCompleted, "ended_at": endedAt})
	if res.Error != nil {
		return models.Run{}, translate(res.Error)
	}
	run, err := p.GetRun(ctx, id)
	if err != nil {
		return models.Run{}, err
	}
	if res.RowsAffected == 0 {
		return run, ErrRunNotActive
	}
	return run, nil
}

func (p *Postgres) ListRunsByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Run, error) {
	var out []models.Run
	err := p.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("started_at DESC").Find(&out).Error
	return out, translate(err)
}

func (p *Postgres) ListRunsByRoute(ctx context.Context, routeID uuid.UUID) ([]models.Run, error) {
	var out []models.Run
	err := p.db.WithContext(ctx).Where("route_id = ?", routeID).Order("started_at DESC").Find(&out).Error
	return out, translate(err)
}

// --- Positions ---

func (p *Postgres) CreatePosition(ctx context.Context, pos *models.Position) error {
	return translate(p.db.WithContext(ctx).Omit(clause.Associations).Create(pos).Error)
}

func (p *Postgres) ListPositions(ctx context.Context, runID uuid.UUID) ([]models.Position, error) {
	var out []models.Position
	err := p.db.WithContext(ctx).Where("run_id = ?", runID).Order("captured_at ASC").Find(&out).Error
	return out, translate(err)
}

var _ Store = (*Postgres)(nil)
