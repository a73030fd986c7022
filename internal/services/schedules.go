package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"route_tracker/internal/apperr"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

const clockLayout = "15:04:05"

// Schedules manages the weekly service windows of a route. Every operation requires
// ownership of the route.
type Schedules struct {
	store store.Store
}

type ScheduleInput struct {
	DayOfWeek int
	StartTime string
	EndTime   *string
}

// parseClock accepts HH:MM or HH:MM:SS and returns the HH:MM:SS form.
func parseClock(field, raw string) (time.Time, string, error) {
	for _, layout := range []string{clockLayout, "15:04"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, t.Format(clockLayout), nil
		}
	}
	return time.Time{}, "", apperr.Validation("%s must be HH:MM:SS", field)
}

func (in ScheduleInput) normalize() (models.Schedule, error) {
	if in.DayOfWeek < 1 || in.DayOfWeek > 7 {
		return models.Schedule{}, apperr.Validation("day_of_week must be between 1 and 7")
	}
	start, startStr, err := parseClock("start_time", in.StartTime)
	if err != nil {
		return models.Schedule{}, err
	}
	s := models.Schedule{DayOfWeek: in.DayOfWeek, StartTime: startStr}
	if in.EndTime != nil {
		end, endStr, err := parseClock("end_time", *in.EndTime)
		if err != nil {
			return models.Schedule{}, err
		}
		if !end.After(start) {
			return models.Schedule{}, apperr.Validation("end_time must be after start_time")
		}
		s.EndTime = &endStr
	}
	return s, nil
}

func (s *Schedules) ownedRoute(ctx context.Context, routeID, profileID uuid.UUID) error {
	route, err := s.store.GetRoute(ctx, routeID)
	if err != nil {
		return lookupErr(err, "route", routeID)
	}
	return Authorize(route, profileID, "caller does not own this route")
}

func (s *Schedules) Create(ctx context.Context, routeID, profileID uuid.UUID, in ScheduleInput) (models.Schedule, error) {
	sched, err := in.normalize()
	if err != nil {
		return models.Schedule{}, err
	}
	if err := s.ownedRoute(ctx, routeID, profileID); err != nil {
		return models.Schedule{}, err
	}
	sched.RouteID = routeID
	if err := s.store.CreateSchedule(ctx, &sched); err != nil {
		return models.Schedule{}, lookupErr(err, "route", routeID)
	}
	return sched, nil
}

func (s *Schedules) List(ctx context.Context, routeID, profileID uuid.UUID) ([]models.Schedule, error) {
	if err := s.ownedRoute(ctx, routeID, profileID); err != nil {
		return nil, err
	}
	out, err := s.store.ListSchedules(ctx, routeID)
	if err != nil {
		return nil, apperr.Storage(err, "list schedules")
	}
	return out, nil
}

func (s *Schedules) Update(ctx context.Context, id, profileID uuid.UUID, in ScheduleInput) (models.Schedule, error) {
	existing, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return models.Schedule{}, lookupErr(err, "schedule", id)
	}
	if err := s.ownedRoute(ctx, existing.RouteID, profileID); err != nil {
		return models.Schedule{}, err
	}
	sched, err := in.normalize()
	if err != nil {
		return models.Schedule{}, err
	}
	existing.DayOfWeek, existing.StartTime, existing.EndTime = sched.DayOfWeek, sched.StartTime, sched.EndTime
	if err := s.store.UpdateSchedule(ctx, &existing); err != nil {
		return models.Schedule{}, lookupErr(err, "schedule", id)
	}
	return existing, nil
}

func (s *Schedules) Delete(ctx context.Context, id, profileID uuid.UUID) error {
	existing, err := s.store.GetSchedule(ctx, id)
	if err != nil {
		return lookupErr(err, "schedule", id)
	}
	if err := s.ownedRoute(ctx, existing.RouteID, profileID); err != nil {
		return err
	}
	if err := s.store.DeleteSchedule(ctx, id); err != nil {
		return lookupErr(err, "schedule", id)
	}
	return nil
}
