package models

import "github.com/google/uuid"

// RouteStreet attaches a street to a route at a caller-given position.
// The same street may appear several times on one route.
type RouteStreet struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	RouteID  uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	StreetID uuid.UUID `gorm:"type:uuid;not null;index" json:"street_id"`
	Position int       `gorm:"not null;default:0" json:"position"`
	Street   *Street   `gorm:"foreignKey:StreetID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"street,omitempty"`
}
