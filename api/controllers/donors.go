package controllers

import (
	"net/http"
	"strings"

	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/api/validators"
	"github.com/qanlink/qanlink-backend/internal/users"
	"github.com/qanlink/qanlink-backend/pkg/enums"
	pkgerrors "github.com/qanlink/qanlink-backend/pkg/errors"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

// SearchDonors filters the donor directory by blood type, city, and region.
func SearchDonors(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := users.SearchDonorsParams{}

		if raw := strings.TrimSpace(r.URL.Query().Get("bloodType")); raw != "" {
			bloodType, err := enums.ParseBloodType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
				return
			}
			params.BloodType = &bloodType
		}
		if city := strings.TrimSpace(r.URL.Query().Get("city")); city != "" {
			params.City = &city
		}
		if region := strings.TrimSpace(r.URL.Query().Get("region")); region != "" {
			params.Region = &region
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params.Limit = limit

		donors, err := svc.SearchDonors(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"donors": donors})
	}
}

// NearbyDonors finds available donors around a coordinate, closest
// first. An optional bloodType narrows results to that exact type.
func NearbyDonors(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lat, err := validators.RequireQueryFloat(r, "lat")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.RequireQueryFloat(r, "lng")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "maxDistance", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var filter *enums.BloodType
		if raw := strings.TrimSpace(r.URL.Query().Get("bloodType")); raw != "" {
			bloodType, err := enums.ParseBloodType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid blood type"))
				return
			}
			filter = &bloodType
		}

		donors, err := svc.NearbyDonors(r.Context(), users.NearbyParams{
			Origin:   types.Point{Lat: lat, Lng: lng},
			RadiusKM: radius,
			Limit:    limit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if filter != nil {
			filtered := donors[:0]
			for _, donor := range donors {
				if donor.BloodType != nil && *donor.BloodType == *filter {
					filtered = append(filtered, donor)
				}
			}
			donors = filtered
		}

		responses.WriteSuccess(w, map[string]any{"donors": donors})
	}
}
