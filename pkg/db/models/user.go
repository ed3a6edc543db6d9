package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/enums"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// User represents the canonical identity entity. Accounts are created
// lazily on the first authenticated call, keyed by the identity
// provider subject.
type User struct {
	ID         uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalID string           `gorm:"column:external_id;type:text;not null;uniqueIndex"`
	Name       string           `gorm:"column:name;type:text;not null"`
	Email      *string          `gorm:"column:email;type:text"`
	Phone      *string          `gorm:"column:phone;type:text"`
	BloodType  *enums.BloodType `gorm:"column:blood_type;type:text"`
	Mode       enums.UserMode   `gorm:"column:mode;type:text;not null;default:'seeker'"`

	Location *types.Point `gorm:"column:location;type:geography(Point,4326)"`
	City     *string      `gorm:"column:city;type:text"`
	Region   *string      `gorm:"column:region;type:text"`

	IsAvailable types.OptionalBool `gorm:"column:is_available"`
	PushToken   *string            `gorm:"column:push_token;type:text"`

	NotifyMatchingRequests types.OptionalBool `gorm:"column:notify_matching_requests"`
	NotifyEligibility      types.OptionalBool `gorm:"column:notify_eligibility"`
	NotifyRequestAccepted  types.OptionalBool `gorm:"column:notify_request_accepted"`

	LastEligibilityReminderAt *time.Time `gorm:"column:last_eligibility_reminder_at;type:timestamptz"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
