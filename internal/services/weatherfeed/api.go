package weatherfeed

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/pkg/jsonutil"
)

// Routes exposes the live station state: GET /stations/nearest and GET /stations/{id}.
func (f *Feed) Routes(r chi.Router) {
	r.Get("/stations/nearest", f.handleNearest)
	r.Get("/stations/{id}", f.handleLatest)
}

func (f *Feed) handleLatest(w http.ResponseWriter, r *http.Request) {
	obs, ok := f.Latest(chi.URLParam(r, "id"))
	if !ok {
		jsonutil.WriteError(w, http.StatusNotFound, "no observation for station")
		return
	}
	jsonutil.Write(w, http.StatusOK, obs)
}

func (f *Feed) handleNearest(w http.ResponseWriter, r *http.Request) {
	res := geo.Resolve(r.Context(), geo.QueryProvider(r)).Wait(r.Context())
	maxKm := 50.0
	if v := r.URL.Query().Get("max_km"); v != "" {
		km, err := strconv.ParseFloat(v, 64)
		if err != nil || km <= 0 {
			jsonutil.WriteFieldError(w, http.StatusBadRequest, "max_km", "must be a positive number")
			return
		}
		maxKm = km
	}
	obs, km, ok := f.Nearest(res.Coordinates, maxKm)
	if !ok {
		jsonutil.WriteError(w, http.StatusNotFound, "no fresh station within range")
		return
	}
	jsonutil.Write(w, http.StatusOK, map[string]any{
		"location":    res,
		"distance_km": km,
		"observation": obs,
	})
}
