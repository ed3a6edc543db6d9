package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// Request is a seeker's ask for blood of a given type.
type Request struct {
	ID        uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SeekerID  uuid.UUID            `gorm:"column:seeker_id;type:uuid;not null;index"`
	BloodType enums.BloodType      `gorm:"column:blood_type;type:text;not null"`
	Urgency   enums.RequestUrgency `gorm:"column:urgency;type:text;not null"`
	Status    enums.RequestStatus  `gorm:"column:status;type:text;not null;default:'open';index"`
	Units     int                  `gorm:"column:units;not null;default:1"`

	Hospital     string       `gorm:"column:hospital;type:text;not null"`
	Location     *types.Point `gorm:"column:location;type:geography(Point,4326)"`
	City         *string      `gorm:"column:city;type:text"`
	Notes        *string      `gorm:"column:notes;type:text"`
	ContactPhone *string      `gorm:"column:contact_phone;type:text"`

	AcceptedBy  *uuid.UUID `gorm:"column:accepted_by;type:uuid"`
	AcceptedAt  *time.Time `gorm:"column:accepted_at;type:timestamptz"`
	CompletedAt *time.Time `gorm:"column:completed_at;type:timestamptz"`
	CancelledAt *time.Time `gorm:"column:cancelled_at;type:timestamptz"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
