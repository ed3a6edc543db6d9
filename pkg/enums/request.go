package enums

import "fmt"

// RequestStatus is the lifecycle state of a blood request.
type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "open"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusAccepted, RequestStatusCompleted,
		RequestStatusCancelled:
		return true
	}
	return false
}

func (s RequestStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

func ParseRequestStatus(value string) (RequestStatus, error) {
	candidate := RequestStatus(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid request status %q", value)
	}
	return candidate, nil
}

// RequestUrgency orders requests by how quickly blood is needed.
type RequestUrgency string

const (
	RequestUrgencyCritical RequestUrgency = "critical"
	RequestUrgencyUrgent   RequestUrgency = "urgent"
	RequestUrgencyNormal   RequestUrgency = "normal"
	RequestUrgencyStandard RequestUrgency = "standard"
)

var urgencyRanks = map[RequestUrgency]int{
	RequestUrgencyCritical: 0,
	RequestUrgencyUrgent:   1,
	RequestUrgencyNormal:   2,
	RequestUrgencyStandard: 3,
}

func (u RequestUrgency) IsValid() bool {
	_, ok := urgencyRanks[u]
	return ok
}

func (u RequestUrgency) String() string {
	return string(u)
}

// Rank returns the sort weight for this urgency, lower meaning more
// urgent. Unknown values sort last.
func (u RequestUrgency) Rank() int {
	if rank, ok := urgencyRanks[u]; ok {
		return rank
	}
	return len(urgencyRanks)
}

// IsEmergency reports whether this urgency qualifies for emergency
// broadcasts.
func (u RequestUrgency) IsEmergency() bool {
	return u == RequestUrgencyCritical || u == RequestUrgencyUrgent
}

func ParseRequestUrgency(value string) (RequestUrgency, error) {
	candidate := RequestUrgency(value)
	if !candidate.IsValid() {
		return "", fmt.Errorf("invalid request urgency %q", value)
	}
	return candidate, nil
}
