package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vehicle is a physical asset owned by exactly one profile.
// Plates are unique across all profiles among vehicles that are not deleted.
type Vehicle struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Plate     string         `gorm:"size:10;not null" json:"plate"`
	Make      *string        `json:"make,omitempty"`
	Model     *string        `json:"model,omitempty"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	ProfileID uuid.UUID      `gorm:"type:uuid;not null;index" json:"profile_id"`
	Profile   *Profile       `gorm:"foreignKey:ProfileID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v Vehicle) OwnerProfileID() uuid.UUID { return v.ProfileID }
