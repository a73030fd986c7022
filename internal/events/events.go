// Package events publishes run lifecycle and position events for downstream consumers.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	RunStarted       = "run.started"
	RunCompleted     = "run.completed"
	PositionRecorded = "position.recorded"
)

// RunEvent is emitted when a run starts or completes.
type RunEvent struct {
	RunID     uuid.UUID  `json:"run_id"`
	RouteID   uuid.UUID  `json:"route_id"`
	VehicleID uuid.UUID  `json:"vehicle_id"`
	ProfileID uuid.UUID  `json:"profile_id"`
	State     string     `json:"state"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// PositionEvent is emitted for each recorded position.
type PositionEvent struct {
	PositionID uuid.UUID `json:"position_id"`
	RunID      uuid.UUID `json:"run_id"`
	VehicleID  uuid.UUID `json:"vehicle_id"`
	ProfileID  uuid.UUID `json:"profile_id"`
	CapturedAt time.Time `json:"captured_at"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
}

// Publisher delivers domain events. Delivery is best effort: callers log failures
// and never roll back the write that produced the event.
type Publisher interface {
	PublishRun(ctx context.Context, kind string, ev RunEvent) error
	PublishPosition(ctx context.Context, ev PositionEvent) error
	Close()
}

// Noop drops every event. It is used when no event bus is configured.
type Noop struct{}

func (Noop) PublishRun(context.Context, string, RunEvent) error     { return nil }
func (Noop) PublishPosition(context.Context, PositionEvent) error { return nil }
func (Noop) Close()                                               {}
