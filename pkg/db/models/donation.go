package models

import (
	"time"

	"github.com/google/uuid"
)

// Donation is a completed blood donation recorded by a donor.
type Donation struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	RequestID *uuid.UUID `gorm:"column:request_id;type:uuid"`
	DonatedAt time.Time  `gorm:"column:donated_at;type:timestamptz;not null"`
	Location  *string    `gorm:"column:location;type:text"`
	Notes     *string    `gorm:"column:notes;type:text"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
