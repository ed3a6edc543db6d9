package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/api/middleware"
	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/api/validators"
	"github.com/qanlink/qanlink-backend/internal/requests"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

type createRequestBody struct {
	BloodType    string   `json:"bloodType" validate:"required"`
	Urgency      string   `json:"urgency" validate:"required"`
	Units        int      `json:"units" validate:"omitempty,min=1,max=10"`
	Hospital     string   `json:"hospital" validate:"required,min=2,max=200"`
	City         *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	Notes        *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	ContactPhone *string  `json:"contactPhone,omitempty" validate:"omitempty,min=5,max=32"`
}

func (b createRequestBody) point() (*types.Point, error) {
	if b.Lat == nil && b.Lng == nil {
		return nil, nil
	}
	if b.Lat == nil || b.Lng == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng must be provided together")
	}
	return &types.Point{Lat: *b.Lat, Lng: *b.Lng}, nil
}

func CreateRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body createRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bloodType, err := enums.ParseBloodType(body.BloodType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
			return
		}
		urgency, err := enums.ParseRequestUrgency(body.Urgency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency"))
			return
		}
		location, err := body.point()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Create(r.Context(), middleware.UserIDFromContext(r.Context()), requests.CreateParams{
			BloodType:    bloodType,
			Urgency:      urgency,
			Units:        body.Units,
			Hospital:     body.Hospital,
			City:         body.City,
			Location:     location,
			Notes:        body.Notes,
			ContactPhone: body.ContactPhone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

type broadcastRequestBody struct {
	BloodType    string   `json:"bloodType" validate:"required"`
	Hospital     string   `json:"hospital" validate:"required,min=2,max=200"`
	City         *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	Lat          *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lng          *float64 `json:"lng,omitempty" validate:"omitempty,longitude"`
	Notes        *string  `json:"notes,omitempty" validate:"omitempty,max=500"`
	ContactPhone *string  `json:"contactPhone,omitempty" validate:"omitempty,min=5,max=32"`
}

// BroadcastEmergency opens a critical request and queues the emergency
// fan-out. The per-seeker broadcast window is enforced by the service.
func BroadcastEmergency(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body broadcastRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		bloodType, err := enums.ParseBloodType(body.BloodType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
			return
		}

		var location *types.Point
		if body.Lat != nil && body.Lng != nil {
			location = &types.Point{Lat: *body.Lat, Lng: *body.Lng}
		}

		view, err := svc.BroadcastEmergency(r.Context(), middleware.UserIDFromContext(r.Context()), requests.BroadcastParams{
			BloodType:    bloodType,
			Hospital:     body.Hospital,
			City:         body.City,
			Location:     location,
			Notes:        body.Notes,
			ContactPhone: body.ContactPhone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// IncomingRequests lists open requests the caller's blood type can
// serve.
func IncomingRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.ForDonor(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": views})
	}
}

func MyRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ForSeeker(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func OpenRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := requests.SearchParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("bloodType")); raw != "" {
			bloodType, err := enums.ParseBloodType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
				return
			}
			params.BloodType = &bloodType
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("urgency")); raw != "" {
			urgency, err := enums.ParseRequestUrgency(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid urgency"))
				return
			}
			params.Urgency = &urgency
		}
		if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
			params.City = &city
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		views, err := svc.OpenSearch(r.Context(), middleware.UserIDFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": views})
	}
}

// HomeFeed is the capped urgency-first slice of compatible open
// requests shown on the app's landing screen.
func HomeFeed(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.HomeFeed(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"requests": views})
	}
}

func RequestDetail(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Detail(r.Context(), middleware.UserIDFromContext(r.Context()), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func AcceptRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Accept(r.Context(), middleware.UserIDFromContext(r.Context()), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CancelRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Cancel(r.Context(), middleware.UserIDFromContext(r.Context()), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.RequestStatusCancelled)})
	}
}

func CompleteRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Complete(r.Context(), middleware.UserIDFromContext(r.Context()), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(enums.RequestStatusCompleted)})
	}
}

func DeclineRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Decline(r.Context(), middleware.UserIDFromContext(r.Context()), requestID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"declined": true})
	}
}

// MyStats reports how many requests the caller has fulfilled as a
// donor.
func MyStats(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := svc.HelpedCount(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"helpedCount": count})
	}
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"param": param})
	}
	return id, nil
}
