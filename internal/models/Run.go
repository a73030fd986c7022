package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunState is the lifecycle state of a run.
type RunState string

const (
	RunInProgress RunState = "in_progress"
	RunCompleted  RunState = "completed"
)

// Run (recorrido) is one execution of a route by a vehicle.
// A vehicle has at most one run in progress; runs only move in_progress -> completed.
type Run struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"route_id"`
	VehicleID uuid.UUID  `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	ProfileID uuid.UUID  `gorm:"type:uuid;not null;index" json:"profile_id"`
	StartedAt time.Time  `gorm:"not null;index" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	State     RunState   `gorm:"size:20;not null;index" json:"state"`

	Route   *Route   `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Vehicle *Vehicle `gorm:"foreignKey:VehicleID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r Run) OwnerProfileID() uuid.UUID { return r.ProfileID }

// InProgress reports whether positions may still be recorded.
func (r Run) InProgress() bool { return r.State == RunInProgress }
