// Package services holds the domain operations behind the HTTP API: the run
// lifecycle, position ingestion, route assembly and the CRUD around them.
// Every error returned here is an *apperr.Error.
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"route_tracker/internal/apperr"
	"route_tracker/internal/cache"
	"route_tracker/internal/events"
	"route_tracker/internal/store"
)

// Clock returns the current time.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// Owned is implemented by every profile-owned resource.
type Owned interface {
	OwnerProfileID() uuid.UUID
}

// Authorize allows access only to the owning profile. message is returned in the
// Forbidden error.
func Authorize(resource Owned, profileID uuid.UUID, message string) error {
	if resource.OwnerProfileID() != profileID {
		return apperr.Forbidden("%s", message)
	}
	return nil
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Store    store.Store
	Clock    Clock
	Events   events.Publisher
	Cache    cache.Cache
	CacheTTL time.Duration
}

// Services bundles the domain services.
type Services struct {
	Profiles  *Profiles
	Vehicles  *Vehicles
	Streets   *Streets
	Routes    *Routes
	Schedules *Schedules
	Trips     *Trips
	Positions *Positions
}

func New(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = SystemClock
	}
	if d.Events == nil {
		d.Events = events.Noop{}
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.CacheTTL <= 0 {
		d.CacheTTL = time.Hour
	}
	return &Services{
		Profiles:  &Profiles{store: d.Store},
		Vehicles:  &Vehicles{store: d.Store},
		Streets:   &Streets{store: d.Store, cache: d.Cache, ttl: d.CacheTTL},
		Routes:    &Routes{store: d.Store},
		Schedules: &Schedules{store: d.Store},
		Trips:     &Trips{store: d.Store, clock: d.Clock, events: d.Events},
		Positions: &Positions{store: d.Store, clock: d.Clock, events: d.Events},
	}
}

// requireProfile maps a missing profile to a ValidationError.
func requireProfile(err error, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Validation("profile %s does not exist", id)
	}
	return apperr.Storage(err, "load profile")
}

// lookupErr maps store.ErrNotFound to NotFound and anything else to a storage failure.
func lookupErr(err error, what string, id uuid.UUID) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("%s %s not found", what, id)
	}
	return apperr.Storage(err, "load %s", what)
}
