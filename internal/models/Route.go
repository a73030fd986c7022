package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"route_tracker/internal/geo"
)

// Route is a named path owned by a profile.
// Its shape is either supplied by the caller or the union of its streets.
type Route struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	Profile   *Profile  `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	Name      string    `gorm:"not null" json:"name"`
	Color     *string   `gorm:"size:7" json:"color,omitempty"`

	// Stored as geometry(Geometry,4326) so a caller-supplied LineString keeps its type.
	Shape geo.Geometry `gorm:"type:geometry(Geometry,4326)" json:"shape"`

	// Associations
	Streets   []RouteStreet `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"streets,omitempty"`
	Schedules []Schedule    `gorm:"foreignKey:RouteID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"schedules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Route) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r Route) OwnerProfileID() uuid.UUID { return r.ProfileID }
