package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/types"
)

// Center is a fixed donation site discoverable through nearby search.
type Center struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string      `gorm:"column:name;type:text;not null;uniqueIndex"`
	Address   string      `gorm:"column:address;type:text;not null"`
	City      string      `gorm:"column:city;type:text;not null"`
	Phone     *string     `gorm:"column:phone;type:text"`
	Hours     *string     `gorm:"column:hours;type:text"`
	Location  types.Point `gorm:"column:location;type:geography(Point,4326);not null"`
	CreatedAt time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
