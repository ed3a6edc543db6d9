package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to users.
type Notification struct {
	ID          uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID uuid.UUID              `gorm:"column:recipient_id;type:uuid;not null;index"`
	Type        enums.NotificationType `gorm:"column:type;type:text;not null"`
	Title       string                 `gorm:"column:title;type:text;not null"`
	Message     string                 `gorm:"column:message;type:text;not null"`
	RequestID   *uuid.UUID             `gorm:"column:request_id;type:uuid"`
	ReadAt      *time.Time             `gorm:"column:read_at;type:timestamptz"`
	CreatedAt   time.Time              `gorm:"column:created_at;type:timestamptz;default:now()"`
}
