package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"route_tracker/internal/events"
	"route_tracker/internal/geo"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

var t0 = time.Date(2025, 3, 14, 8, 30, 0, 0, time.UTC)

// fakeClock advances one second per call.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// recordingPublisher keeps every event it receives.
type recordingPublisher struct {
	mu        sync.Mutex
	runs      []string
	positions []events.PositionEvent
}

func (p *recordingPublisher) PublishRun(_ context.Context, kind string, _ events.RunEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, kind)
	return nil
}

func (p *recordingPublisher) PublishPosition(_ context.Context, ev events.PositionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append(p.positions, ev)
	return nil
}

func (p *recordingPublisher) Close() {}

type fixture struct {
	ctx    context.Context
	store  *store.Memory
	svc    *Services
	clock  *fakeClock
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		store:  store.NewMemory(),
		clock:  &fakeClock{now: t0},
		events: &recordingPublisher{},
	}
	f.svc = New(Deps{Store: f.store, Clock: f.clock.Now, Events: f.events})
	return f
}

func (f *fixture) profile(t *testing.T, name string) models.Profile {
	t.Helper()
	p, err := f.svc.Profiles.Create(f.ctx, name)
	require.NoError(t, err)
	return p
}

func (f *fixture) vehicle(t *testing.T, profileID uuid.UUID, plate string) models.Vehicle {
	t.Helper()
	v, err := f.svc.Vehicles.Create(f.ctx, VehicleInput{Plate: plate, ProfileID: profileID})
	require.NoError(t, err)
	return v
}

func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords).SetSRID(geo.SRID)
}

func (f *fixture) street(t *testing.T, name string, coords ...float64) models.Street {
	t.Helper()
	s := []models.Street{{Name: name, Shape: geo.Geometry{T: line(coords...)}}}
	_, err := f.store.ImportStreets(f.ctx, s)
	require.NoError(t, err)
	return s[0]
}

func (f *fixture) shapeRoute(t *testing.T, profileID uuid.UUID, name string) models.Route {
	t.Helper()
	r, err := f.svc.Routes.CreateRoute(f.ctx, CreateRouteInput{
		Name:      name,
		ProfileID: profileID,
		Shape:     json.RawMessage(`{"type":"LineString","coordinates":[[-76.53,3.42],[-76.52,3.43]]}`),
	})
	require.NoError(t, err)
	return r
}
