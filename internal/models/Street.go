package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"route_tracker/internal/geo"
)

// Street is a named line imported in bulk. The API never mutates it.
type Street struct {
	ID        uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string       `gorm:"not null;index" json:"name"`
	Shape     geo.Geometry `gorm:"type:geometry(Geometry,4326);not null" json:"shape"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (s *Street) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
