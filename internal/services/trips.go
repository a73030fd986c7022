package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/events"
	"route_tracker/internal/metrics"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

// Trips manages the run lifecycle: in_progress -> completed.
type Trips struct {
	store  store.Store
	clock  Clock
	events events.Publisher
}

// StartRun opens a run for the vehicle on the route. A vehicle can only have one
// run in progress at a time; the check and the insert are atomic in the store.
func (t *Trips) StartRun(ctx context.Context, routeID, vehicleID, profileID uuid.UUID) (models.Run, error) {
	if _, err := t.store.GetProfile(ctx, profileID); err != nil {
		return models.Run{}, requireProfile(err, profileID)
	}
	if _, err := t.store.GetRoute(ctx, routeID); err != nil {
		return models.Run{}, lookupErr(err, "route", routeID)
	}
	if _, err := t.store.GetVehicle(ctx, vehicleID); err != nil {
		return models.Run{}, lookupErr(err, "vehicle", vehicleID)
	}

	run := models.Run{
		RouteID:   routeID,
		VehicleID: vehicleID,
		ProfileID: profileID,
		StartedAt: t.clock(),
		State:     models.RunInProgress,
	}
	if err := t.store.CreateRun(ctx, &run); err != nil {
		switch {
		case errors.Is(err, store.ErrActiveRunExists):
			return models.Run{}, apperr.Conflict("vehicle already has an active run")
		case errors.Is(err, store.ErrNotFound):
			// vehicle deleted between the lookup and the insert
			return models.Run{}, apperr.NotFound("vehicle %s not found", vehicleID)
		default:
			return models.Run{}, apperr.Storage(err, "create run")
		}
	}

	metrics.RunsStarted.Inc()
	logrus.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"vehicle_id": vehicleID,
		"route_id":   routeID,
	}).Info("run started")
	t.publish(ctx, events.RunStarted, run)
	return run, nil
}

// FinalizeRun completes a run owned by profileID. Finalizing a completed run is a
// Conflict and leaves its end time untouched.
func (t *Trips) FinalizeRun(ctx context.Context, runID, profileID uuid.UUID) (models.Run, error) {
	run, err := t.store.GetRun(ctx, runID)
	if err != nil {
		return models.Run{}, lookupErr(err, "run", runID)
	}
	if err := Authorize(run, profileID, "caller does not own this run"); err != nil {
		return models.Run{}, err
	}
	if !run.InProgress() {
		return models.Run{}, apperr.Conflict("run is already completed")
	}

	done, err := t.store.CompleteRun(ctx, runID, t.clock())
	if err != nil {
		if errors.Is(err, store.ErrRunNotActive) {
			return models.Run{}, apperr.Conflict("run is already completed")
		}
		return models.Run{}, apperr.Storage(err, "complete run")
	}

	metrics.RunsCompleted.Inc()
	logrus.WithField("run_id", runID).Info("run completed")
	t.publish(ctx, events.RunCompleted, done)
	return done, nil
}

// ListRunsByProfile returns the profile's runs, newest first.
func (t *Trips) ListRunsByProfile(ctx context.Context, profileID uuid.UUID) ([]models.Run, error) {
	if _, err := t.store.GetProfile(ctx, profileID); err != nil {
		return nil, requireProfile(err, profileID)
	}
	runs, err := t.store.ListRunsByProfile(ctx, profileID)
	if err != nil {
		return nil, apperr.Storage(err, "list runs")
	}
	return runs, nil
}

// ListRunsByRoute returns the runs of a route owned by profileID, newest first.
func (t *Trips) ListRunsByRoute(ctx context.Context, routeID, profileID uuid.UUID) ([]models.Run, error) {
	route, err := t.store.GetRoute(ctx, routeID)
	if err != nil {
		return nil, lookupErr(err, "route", routeID)
	}
	if err := Authorize(route, profileID, "caller does not own this route"); err != nil {
		return nil, err
	}
	runs, err := t.store.ListRunsByRoute(ctx, routeID)
	if err != nil {
		return nil, apperr.Storage(err, "list runs")
	}
	return runs, nil
}

func (t *Trips) publish(ctx context.Context, kind string, run models.Run) {
	ev := events.RunEvent{
		RunID:     run.ID,
		RouteID:   run.RouteID,
		VehicleID: run.VehicleID,
		ProfileID: run.ProfileID,
		State:     string(run.State),
		StartedAt: run.StartedAt,
		EndedAt:   run.EndedAt,
	}
	if err := t.events.PublishRun(ctx, kind, ev); err != nil {
		logrus.WithError(err).WithField("run_id", run.ID).Warn("publish run event failed")
	}
}
