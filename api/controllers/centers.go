package controllers

import (
	"net/http"
	"strings"

	"github.com/qanlink/qanlink-backend/api/responses"
	"github.com/qanlink/qanlink-backend/api/validators"
	"github.com/qanlink/qanlink-backend/internal/centers"
	"github.com/qanlink/qanlink-backend/pkg/logger"
	"github.com/qanlink/qanlink-backend/pkg/types"
)

func ListCenters(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var city *string
		if raw := strings.TrimSpace(r.URL.Query().Get("city")); raw != "" {
			city = &raw
		}
		rows, err := svc.List(r.Context(), city)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"centers": rows})
	}
}

// NearbyCenters lists donation centers around a coordinate, closest
// first.
func NearbyCenters(svc centers.Service, logg *logger.Logger) http.HandlerFunc {
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
		maxDistance, err := validators.ParseQueryFloat(r, "maxDistance", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views, err := svc.Nearby(r.Context(), types.Point{Lat: lat, Lng: lng}, maxDistance)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"centers": views})
	}
}
