package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qanlink/qanlink-backend/api/middleware"
	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/api/validators"
	"github.com/qanlink/qanlink-backend/internal/donations"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/pagination"
)

type addDonationBody struct {
	DonatedAt time.Time `json:"donatedAt" validate:"required"`
	RequestID *string   `json:"requestId,omitempty"`
	Location  *string   `json:"location,omitempty" validate:"omitempty,max=200"`
	Notes     *string   `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func AddDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body addDonationBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var requestID *uuid.UUID
		if body.RequestID != nil && strings.TrimSpace(*body.RequestID) != "" {
			id, err := uuid.Parse(*body.RequestID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request id"))
				return
			}
			requestID = &id
		}

		donation, err := svc.Add(r.Context(), middleware.UserIDFromContext(r.Context()), donations.AddParams{
			DonatedAt: body.DonatedAt,
			RequestID: requestID,
			Location:  body.Location,
			Notes:     body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, donation)
	}
}

func ListDonations(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.History(r.Context(), middleware.UserIDFromContext(r.Context()), pagination.Params{
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

func DeleteDonation(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		donationID, err := pathUUID(r, "donationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.UserIDFromContext(r.Context()), donationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func DonationStats(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.Stats(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// DonationEligibility reports whether the caller can donate today and
// when the next 56-day cycle opens.
func DonationEligibility(svc donations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := svc.Eligibility(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}
