package controllers

import (
	"net/http"

	"github.com/qanlink/qanlink-backend/api/middleware"
	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/api/validators"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// SyncUser resolves the token identity to a local account, creating it
// on first contact, and returns the full profile.
func SyncUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.IdentityFromContext(r.Context())
		profile, err := svc.GetOrCreate(r.Context(), users.Identity{
			ExternalID: identity.ExternalID,
			Name:       identity.Name,
			Email:      identity.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func GetMe(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type updatePhoneRequest struct {
	Phone string `json:"phone" validate:"required,min=5,max=32"`
}

func UpdatePhone(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePhoneRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		phone := validators.SanitizeString(req.Phone, 32)
		profile, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), users.UpdateProfileParams{Phone: &phone})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type updateBloodTypeRequest struct {
	BloodType string `json:"bloodType" validate:"required"`
}

func UpdateBloodType(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateBloodTypeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		bloodType, err := enums.ParseBloodType(req.BloodType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
			return
		}
		profile, err := svc.SetBloodType(r.Context(), middleware.UserIDFromContext(r.Context()), bloodType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type updateModeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

func UpdateMode(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateModeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseUserMode(req.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid mode"))
			return
		}
		if err := svc.SetMode(r.Context(), middleware.UserIDFromContext(r.Context()), mode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"mode": string(mode)})
	}
}

type updateLocationRequest struct {
	Lat float64 `json:"lat" validate:"required,latitude"`
	Lng float64 `json:"lng" validate:"required,longitude"`
}

func UpdateLocation(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.UpdateLocation(r.Context(), middleware.UserIDFromContext(r.Context()), types.Point{Lat: req.Lat, Lng: req.Lng})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type updateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
}

func UpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateProfileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), users.UpdateProfileParams{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

type updatePushTokenRequest struct {
	PushToken string `json:"pushToken" validate:"required,max=256"`
}

func UpdatePushToken(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePushTokenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SetPushToken(r.Context(), middleware.UserIDFromContext(r.Context()), req.PushToken); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusOK, map[string]bool{"registered": true})
	}
}

// ToggleAvailability flips the caller's donor availability flag.
func ToggleAvailability(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserIDFromContext(r.Context())
		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next := !profile.IsAvailable
		if err := svc.SetAvailability(r.Context(), userID, next); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"isAvailable": next})
	}
}

func GetAvailability(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"isAvailable": profile.IsAvailable})
	}
}

func GetNotificationPreferences(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := svc.Get(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile.Preferences)
	}
}

type updatePreferencesRequest struct {
	MatchingRequests *bool `json:"matchingRequests,omitempty"`
	Eligibility      *bool `json:"eligibility,omitempty"`
	RequestAccepted  *bool `json:"requestAccepted,omitempty"`
}

func UpdateNotificationPreferences(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updatePreferencesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := middleware.UserIDFromContext(r.Context())
		if err := svc.UpdatePreferences(r.Context(), userID, users.PreferencesUpdate{
			MatchingRequests: optionalBool(req.MatchingRequests),
			Eligibility:      optionalBool(req.Eligibility),
			RequestAccepted:  optionalBool(req.RequestAccepted),
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		profile, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile.Preferences)
	}
}

func optionalBool(value *bool) types.OptionalBool {
	if value == nil {
		return types.OptionalBool{}
	}
	return types.OptionalBool{Bool: *value, Valid: true}
}
