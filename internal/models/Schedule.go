package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Schedule is a weekly service window of a route.
// DayOfWeek runs 1..7; times are "HH:MM:SS".
type Schedule struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RouteID   uuid.UUID `gorm:"type:uuid;not null;index" json:"route_id"`
	DayOfWeek int       `gorm:"type:smallint;not null" json:"day_of_week"`
	StartTime string    `gorm:"size:8;not null" json:"start_time"`
	EndTime   *string   `gorm:"size:8" json:"end_time,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Schedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
