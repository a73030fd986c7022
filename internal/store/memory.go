package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/twpayne/go-geom"

	"route_tracker/internal/geo"
	"route_tracker/internal/models"
)

// Memory is an in-memory store used when no database is configured and in tests.
// A transaction holds the store lock for its whole duration and restores a snapshot
// when fn fails.
type Memory struct {
	mu   *sync.Mutex
	db   *memDB
	inTx bool
}

type memDB struct {
	profiles     map[uuid.UUID]models.Profile
	vehicles     map[uuid.UUID]models.Vehicle
	streets      map[uuid.UUID]models.Street
	routes       map[uuid.UUID]models.Route // without associations
	routeStreets []models.RouteStreet
	schedules    map[uuid.UUID]models.Schedule
	runs         map[uuid.UUID]models.Run
	positions    []models.Position
	nextLinkID   uint
}

func NewMemory() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		db: &memDB{
			profiles:  map[uuid.UUID]models.Profile{},
			vehicles:  map[uuid.UUID]models.Vehicle{},
			streets:   map[uuid.UUID]models.Street{},
			routes:    map[uuid.UUID]models.Route{},
			schedules: map[uuid.UUID]models.Schedule{},
			runs:      map[uuid.UUID]models.Run{},
		},
	}
}

func (d *memDB) clone() memDB {
	c := memDB{
		profiles:     make(map[uuid.UUID]models.Profile, len(d.profiles)),
		vehicles:     make(map[uuid.UUID]models.Vehicle, len(d.vehicles)),
		streets:      make(map[uuid.UUID]models.Street, len(d.streets)),
		routes:       make(map[uuid.UUID]models.Route, len(d.routes)),
		routeStreets: append([]models.RouteStreet(nil), d.routeStreets...),
		schedules:    make(map[uuid.UUID]models.Schedule, len(d.schedules)),
		runs:         make(map[uuid.UUID]models.Run, len(d.runs)),
		positions:    append([]models.Position(nil), d.positions...),
		nextLinkID:   d.nextLinkID,
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.vehicles {
		c.vehicles[k] = v
	}
	for k, v := range d.streets {
		c.streets[k] = v
	}
	for k, v := range d.routes {
		c.routes[k] = v
	}
	for k, v := range d.schedules {
		c.schedules[k] = v
	}
	for k, v := range d.runs {
		c.runs[k] = v
	}
	return c
}

// lock takes the store mutex unless the caller already runs inside WithinTx.
func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.db.clone()
	tx := &Memory{mu: m.mu, db: m.db, inTx: true}
	defer func() {
		if p := recover(); p != nil {
			*m.db = snapshot
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		*m.db = snapshot
		return err
	}
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

// --- Profiles ---

func (m *Memory) CreateProfile(ctx context.Context, p *models.Profile) error {
	defer m.lock()()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if _, ok := m.db.profiles[p.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.db.profiles[p.ID] = *p
	return nil
}

func (m *Memory) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	defer m.lock()()
	p, ok := m.db.profiles[id]
	if !ok {
		return models.Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) ListProfiles(ctx context.Context) ([]models.Profile, error) {
	defer m.lock()()
	out := make([]models.Profile, 0, len(m.db.profiles))
	for _, p := range m.db.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Vehicles ---

func (m *Memory) plateTaken(plate string, except uuid.UUID) bool {
	for id, v := range m.db.vehicles {
		if id != except && v.Plate == plate {
			return true
		}
	}
	return false
}

func (m *Memory) CreateVehicle(ctx context.Context, v *models.Vehicle) error {
	defer m.lock()()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if m.plateTaken(v.Plate, v.ID) {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now
	m.db.vehicles[v.ID] = *v
	return nil
}

func (m *Memory) GetVehicle(ctx context.Context, id uuid.UUID) (models.Vehicle, error) {
	defer m.lock()()
	v, ok := m.db.vehicles[id]
	if !ok {
		return models.Vehicle{}, ErrNotFound
	}
	return v, nil
}

func (m *Memory) ListVehicles(ctx context.Context, profileID uuid.UUID) ([]models.Vehicle, error) {
	defer m.lock()()
	out := []models.Vehicle{}
	for _, v := range m.db.vehicles {
		if v.ProfileID == profileID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Plate < out[j].Plate })
	return out, nil
}

func (m *Memory) UpdateVehicle(ctx context.Context, v *models.Vehicle) error {
	defer m.lock()()
	if _, ok := m.db.vehicles[v.ID]; !ok {
		return ErrNotFound
	}
	if m.plateTaken(v.Plate, v.ID) {
		return ErrDuplicate
	}
	v.UpdatedAt = time.Now().UTC()
	m.db.vehicles[v.ID] = *v
	return nil
}

func (m *Memory) DeleteVehicle(ctx context.Context, id uuid.UUID) error {
	defer m.lock()()
	if _, ok := m.db.vehicles[id]; !ok {
		return ErrNotFound
	}
	delete(m.db.vehicles, id)
	return nil
}

// --- Streets ---

func (m *Memory) ImportStreets(ctx context.Context, streets []models.Street) (int, error) {
	defer m.lock()()
	now := time.Now().UTC()
	for i := range streets {
		if streets[i].ID == uuid.Nil {
			streets[i].ID = uuid.New()
		}
		streets[i].CreatedAt, streets[i].UpdatedAt = now, now
		m.db.streets[streets[i].ID] = streets[i]
	}
	return len(streets), nil
}

func (m *Memory) GetStreet(ctx context.Context, id uuid.UUID) (models.Street, error) {
	defer m.lock()()
	s, ok := m.db.streets[id]
	if !ok {
		return models.Street{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListStreets(ctx context.Context) ([]models.Street, error) {
	defer m.lock()()
	out := make([]models.Street, 0, len(m.db.streets))
	for _, s := range m.db.streets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) FindStreets(ctx context.Context, ids []uuid.UUID) ([]models.Street, error) {
	defer m.lock()()
	return m.findStreets(ids), nil
}

func (m *Memory) findStreets(ids []uuid.UUID) []models.Street {
	seen := map[uuid.UUID]bool{}
	out := []models.Street{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := m.db.streets[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *Memory) UnionStreetGeometries(ctx context.Context, ids []uuid.UUID) (geom.T, error) {
	defer m.lock()()
	shapes := []geom.T{}
	for _, s := range m.findStreets(ids) {
		if s.Shape.Valid() {
			shapes = append(shapes, s.Shape.T)
		}
	}
	union, err := geo.CollectLines(shapes)
	if errors.Is(err, geo.ErrEmptyGeometry) {
		return nil, ErrEmptyUnion
	}
	if err != nil {
		return nil, err
	}
	return union, nil
}

// --- Routes ---

func (m *Memory) CreateRoute(ctx context.Context, r *models.Route) error {
	defer m.lock()()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	for i := range r.Streets {
		m.db.nextLinkID++
		r.Streets[i].ID = m.db.nextLinkID
		r.Streets[i].RouteID = r.ID
		link := r.Streets[i]
		link.Street = nil
		m.db.routeStreets = append(m.db.routeStreets, link)
	}
	stored := *r
	stored.Streets, stored.Schedules = nil, nil
	m.db.routes[r.ID] = stored
	return nil
}

func (m *Memory) GetRoute(ctx context.Context, id uuid.UUID) (models.Route, error) {
	defer m.lock()()
	r, ok := m.db.routes[id]
	if !ok {
		return models.Route{}, ErrNotFound
	}
	links := []models.RouteStreet{}
	for _, l := range m.db.routeStreets {
		if l.RouteID != id {
			continue
		}
		if s, ok := m.db.streets[l.StreetID]; ok {
			street := s
			l.Street = &street
		}
		links = append(links, l)
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	r.Streets = links
	r.Schedules = m.schedulesOf(id)
	return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, profileID uuid.UUID) ([]models.Route, error) {
	defer m.lock()()
	out := []models.Route{}
	for _, r := range m.db.routes {
		if r.ProfileID == profileID {
			// listings carry no geometry
			r.Shape = geo.Geometry{}
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Schedules ---

func (m *Memory) schedulesOf(routeID uuid.UUID) []models.Schedule {
	out := []models.Schedule{}
	for _, s := range m.db.schedules {
		if s.RouteID == routeID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (m *Memory) CreateSchedule(ctx context.Context, s *models.Schedule) error {
	defer m.lock()()
	if _, ok := m.db.routes[s.RouteID]; !ok {
		return ErrNotFound
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	m.db.schedules[s.ID] = *s
	return nil
}

func (m *Memory) GetSchedule(ctx context.Context, id uuid.UUID) (models.Schedule, error) {
	defer m.lock()()
	s, ok := m.db.schedules[id]
	if !ok {
		return models.Schedule{}, ErrNotFound
	}
	return s, nil
}

func (m *Memory) ListSchedules(ctx context.Context, routeID uuid.UUID) ([]models.Schedule, error) {
	defer m.lock()()
	return m.schedulesOf(routeID), nil
}

func (m *Memory) UpdateSchedule(ctx context.Context, s *models.Schedule) error {
	defer m.lock()()
	if _, ok := m.db.schedules[s.ID]; !ok {
		return ErrNotFound
	}
	s.UpdatedAt = time.Now().UTC()
	m.db.schedules[s.ID] = *s
	return nil
}

func (m *Memory) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	defer m.lock()()
	if _, ok := m.db.schedules[id]; !ok {
		return ErrNotFound
	}
	delete(m.db.schedules, id)
	return nil
}

// --- Runs ---

func (m *Memory) CreateRun(ctx context.Context, r *models.Run) error {
	defer m.lock()()
	if _, ok := m.db.vehicles[r.VehicleID]; !ok {
		return ErrNotFound
	}
	for _, existing := range m.db.runs {
		if existing.VehicleID == r.VehicleID && existing.State == models.RunInProgress {
			return ErrActiveRunExists
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	m.db.runs[r.ID] = *r
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id uuid.UUID) (models.Run, error) {
	defer m.lock()()
	r, ok := m.db.runs[id]
	if !ok {
		return models.Run{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) CompleteRun(ctx context.Context, id uuid.UUID, endedAt time.Time) (models.Run, error) {
	defer m.lock()()
	r, ok := m.db.runs[id]
	if !ok {
		return models.Run{}, ErrNotFound
	}
	if r.State != models.RunInProgress {
		return r, ErrRunNotActive
	}
	r.State = models.RunCompleted
	r.EndedAt = &endedAt
	r.UpdatedAt = time.Now().UTC()
	m.db.runs[id] = r
	return r, nil
}

func (m *Memory) runsWhere(keep func(models.Run) bool) []models.Run {
	out := []models.Run{}
	for _, r := range m.db.runs {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

func (m *Memory) ListRunsByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Run, error) {
	defer m.lock()()
	return m.runsWhere(func(r models.Run) bool { return r.ProfileID == profileID }), nil
}

func (m *Memory) ListRunsByRoute(ctx context.Context, routeID uuid.UUID) ([]models.Run, error) {
	defer m.lock()()
	return m.runsWhere(func(r models.Run) bool { return r.RouteID == routeID }), nil
}

// --- Positions ---

func (m *Memory) CreatePosition(ctx context.Context, p *models.Position) error {
	defer m.lock()()
	if _, ok := m.db.runs[p.RunID]; !ok {
		return ErrNotFound
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.db.positions = append(m.db.positions, *p)
	return nil
}

func (m *Memory) ListPositions(ctx context.Context, runID uuid.UUID) ([]models.Position, error) {
	defer m.lock()()
	out := []models.Position{}
	for _, p := range m.db.positions {
		if p.RunID == runID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CapturedAt.Before(out[j].CapturedAt) })
	return out, nil
}

var _ Store = (*Memory)(nil)
