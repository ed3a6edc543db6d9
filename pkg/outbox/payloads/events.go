package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/enums"
)

// RequestCreatedEvent triggers donor fan-out for a fresh request.
type RequestCreatedEvent struct {
	RequestID uuid.UUID            `json:"requestId"`
	SeekerID  uuid.UUID            `json:"seekerId"`
	BloodType enums.BloodType      `json:"bloodType"`
	Urgency   enums.RequestUrgency `json:"urgency"`
	Hospital  string               `json:"hospital"`
	City      string               `json:"city,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// RequestAcceptedEvent notifies the seeker that a donor stepped up.
type RequestAcceptedEvent struct {
	RequestID  uuid.UUID `json:"requestId"`
	SeekerID   uuid.UUID `json:"seekerId"`
	DonorID    uuid.UUID `json:"donorId"`
	DonorName  string    `json:"donorName"`
	AcceptedAt time.Time `json:"acceptedAt"`
}

// EmergencyBroadcastEvent re-alerts donors for urgent open requests.
type EmergencyBroadcastEvent struct {
	RequestID     uuid.UUID            `json:"requestId"`
	SeekerID      uuid.UUID            `json:"seekerId"`
	BloodType     enums.BloodType      `json:"bloodType"`
	Urgency       enums.RequestUrgency `json:"urgency"`
	Hospital      string               `json:"hospital"`
	BroadcastedAt time.Time            `json:"broadcastedAt"`
}
