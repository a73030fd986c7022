package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"route_tracker/internal/geo"
)

// Position is an immutable GPS sample of a run.
type Position struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	RunID      uuid.UUID    `gorm:"type:uuid;not null;index:idx_positions_run_captured,priority:1" json:"run_id"`
	ProfileID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"profile_id"`
	VehicleID  uuid.UUID    `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	CapturedAt time.Time    `gorm:"not null;index:idx_positions_run_captured,priority:2" json:"captured_at"`
	Point      geo.Geometry `gorm:"type:geometry(Point,4326);not null" json:"point"`

	Run *Run `gorm:"foreignKey:RunID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
