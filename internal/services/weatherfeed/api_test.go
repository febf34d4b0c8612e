package weatherfeed

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	f, _, _ := newFeed(t)
	require.NoError(t, deliver(t, f, "weather/observations/st-1", delhiStation("st-1", 31, t0)))
	r := chi.NewRouter()
	f.Routes(r)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/stations/st-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"station_id":"st-1"`)
	assert.Equal(t, http.StatusNotFound, get("/stations/nope").Code)

	// no lat/lon: the default location is New Delhi, next to st-1
	rec = get("/stations/nearest")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		DistanceKm  float64 `json:"distance_km"`
		Observation struct {
			StationID string `json:"station_id"`
		} `json:"observation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "st-1", body.Observation.StationID)
	assert.Less(t, body.DistanceKm, 2.0)

	assert.Equal(t, http.StatusNotFound, get("/stations/nearest?lat=13.08&lon=80.27").Code)
	assert.Equal(t, http.StatusBadRequest, get("/stations/nearest?max_km=-3").Code)
}
