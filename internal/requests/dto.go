package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/pkg/db/models"
	"github.com/qanlink/qanlink-backend/pkg/enums"
)

// PartyView is the projection of a request's seeker or donor shown to
// other callers. Phone stays nil unless the privacy gate sets it.
type PartyView struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name,omitempty"`
	BloodType *enums.BloodType `json:"bloodType,omitempty"`
	City      *string          `json:"city,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
}

// View is a request as seen by a particular viewer.
type View struct {
	ID         uuid.UUID            `json:"id"`
	BloodType  enums.BloodType      `json:"bloodType"`
	Urgency    enums.RequestUrgency `json:"urgency"`
	Status     enums.RequestStatus  `json:"status"`
	Units      int                  `json:"units"`
	Hospital   string               `json:"hospital,omitempty"`
	City       *string              `json:"city,omitempty"`
	Notes      *string              `json:"notes,omitempty"`
	Seeker     *PartyView           `json:"seeker,omitempty"`
	Donor      *PartyView           `json:"donor,omitempty"`
	AcceptedAt *time.Time           `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// Page is one page of request views.
type Page struct {
	Requests   []View `json:"requests"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// toView projects a request for the given viewer. Contact details
// surface only on accepted requests and only to the counterpart:
// the donor sees the seeker's contact, the seeker sees the donor's.
// Everyone else gets the sub-objects without a phone field at all.
func toView(request *models.Request, seeker, donor *models.User, viewerID uuid.UUID) View {
	view := View{
		ID:         request.ID,
		BloodType:  request.BloodType,
		Urgency:    request.Urgency,
		Status:     request.Status,
		Units:      request.Units,
		Hospital:   request.Hospital,
		City:       request.City,
		Notes:      request.Notes,
		AcceptedAt: request.AcceptedAt,
		CreatedAt:  request.CreatedAt,
	}

	accepted := request.Status == enums.RequestStatusAccepted && request.AcceptedBy != nil

	if seeker != nil {
		party := PartyView{
			ID:        seeker.ID,
			Name:      seeker.Name,
			BloodType: seeker.BloodType,
			City:      seeker.City,
		}
		if accepted && viewerID == *request.AcceptedBy {
			party.Phone = seekerContact(request, seeker)
		}
		view.Seeker = &party
	}

	if donor != nil && request.AcceptedBy != nil {
		party := PartyView{
			ID:        donor.ID,
			Name:      donor.Name,
			BloodType: donor.BloodType,
			City:      donor.City,
		}
		if accepted && viewerID == request.SeekerID {
			party.Phone = donor.Phone
		}
		view.Donor = &party
	}

	return view
}

// toFeedView is the slim projection for open-request listings: the
// request's own fields plus the seeker's id and city, never any party
// contact data.
func toFeedView(request models.Request, seeker *models.User) View {
	party := PartyView{ID: request.SeekerID}
	if seeker != nil {
		party.City = seeker.City
	}
	return View{
		ID:        request.ID,
		BloodType: request.BloodType,
		Urgency:   request.Urgency,
		Status:    request.Status,
		Units:     request.Units,
		Hospital:  request.Hospital,
		City:      request.City,
		Notes:     request.Notes,
		Seeker:    &party,
		CreatedAt: request.CreatedAt,
	}
}

// seekerContact prefers the contact number pinned to the request and
// falls back to the seeker profile's phone.
func seekerContact(request *models.Request, seeker *models.User) *string {
	if request.ContactPhone != nil && *request.ContactPhone != "" {
		return request.ContactPhone
	}
	return seeker.Phone
}
