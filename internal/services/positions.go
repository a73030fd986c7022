package services

import (
	"context"
	"math"

	"github.com/google/uuid"
	logrus "github.com/sirupsen/logrus"

	"route_tracker/internal/apperr"
	"route_tracker/internal/events"
	"route_tracker/internal/geo"
	"route_tracker/internal/metrics"
	"route_tracker/internal/models"
	"route_tracker/internal/store"
)

// Positions validates and stores GPS samples of runs in progress.
type Positions struct {
	store  store.Store
	clock  Clock
	events events.Publisher
}

// RecordPosition stores a sample for a run. Checks run in order and the first
// failure wins: coordinates, profile, run, ownership, run state.
func (p *Positions) RecordPosition(ctx context.Context, runID, profileID uuid.UUID, lat, lon float64) (models.Position, error) {
	pos, err := p.record(ctx, runID, profileID, lat, lon)
	if err != nil {
		metrics.PositionsRecorded.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return models.Position{}, err
	}
	metrics.PositionsRecorded.WithLabelValues("ok").Inc()
	return pos, nil
}

func (p *Positions) record(ctx context.Context, runID, profileID uuid.UUID, lat, lon float64) (models.Position, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.Position{}, apperr.Validation("latitude must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return models.Position{}, apperr.Validation("longitude must be between -180 and 180")
	}
	if _, err := p.store.GetProfile(ctx, profileID); err != nil {
		return models.Position{}, requireProfile(err, profileID)
	}
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return models.Position{}, lookupErr(err, "run", runID)
	}
	if err := Authorize(run, profileID, "profile does not own this run"); err != nil {
		return models.Position{}, err
	}
	if !run.InProgress() {
		return models.Position{}, apperr.Forbidden("run must be in progress to record a position")
	}

	pos := models.Position{
		RunID:      run.ID,
		ProfileID:  profileID,
		VehicleID:  run.VehicleID,
		CapturedAt: p.clock(),
		Point:      geo.Geometry{T: geo.NewPoint(lon, lat)},
	}
	if err := p.store.CreatePosition(ctx, &pos); err != nil {
		return models.Position{}, apperr.Storage(err, "record position")
	}

	ev := events.PositionEvent{
		PositionID: pos.ID,
		RunID:      pos.RunID,
		VehicleID:  pos.VehicleID,
		ProfileID:  pos.ProfileID,
		CapturedAt: pos.CapturedAt,
		Lat:        lat,
		Lon:        lon,
	}
	if err := p.events.PublishPosition(ctx, ev); err != nil {
		logrus.WithError(err).WithField("run_id", run.ID).Warn("publish position event failed")
	}
	return pos, nil
}

// ListPositions returns a run's positions oldest first. Only the run's owner may
// read them.
func (p *Positions) ListPositions(ctx context.Context, runID, profileID uuid.UUID) ([]models.Position, error) {
	run, err := p.store.GetRun(ctx, runID)
	if err != nil {
		return nil, lookupErr(err, "run", runID)
	}
	if err := Authorize(run, profileID, "profile does not own this run"); err != nil {
		return nil, err
	}
	out, err := p.store.ListPositions(ctx, runID)
	if err != nil {
		return nil, apperr.Storage(err, "list positions")
	}
	return out, nil
}
