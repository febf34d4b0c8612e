package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/internal/services/session"
	"github.com/ritheshan/agri/pkg/jsonutil"
)

// Routes mounts the proxied endpoints, typically under /api.
func (g *Gateway) Routes(r chi.Router) {
	r.Get("/dashboard", g.HandleDashboard)
	r.Get("/predict/{kind}", g.HandlePredict)
	r.Post("/disease/detect", g.HandleDetectDisease)
}

func coordsQuery(c geo.Coordinates) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	return q
}

// unauthorized clears the session and answers 401 so the client logs in again.
func (g *Gateway) unauthorized(w http.ResponseWriter, r *http.Request) {
	if g.sessions != nil {
		if err := g.sessions.Clear(w, r); err != nil {
			g.log.Warn("gateway: session clear failed", zap.Error(err))
		}
	}
	jsonutil.WriteError(w, http.StatusUnauthorized, "session expired, please log in again")
}

// HandleDashboard resolves the location, then fetches weather, alerts and the
// spray window in parallel. Each part degrades on its own.
func (g *Gateway) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()

	loc := geo.Resolve(ctx, geo.QueryProvider(r)).Wait(ctx)
	bearer := session.FromContext(r.Context()).Bearer()
	q := coordsQuery(loc.Coordinates)

	var (
		mu       sync.Mutex
		agri     AgriData
		alerts   WeatherAlerts
		spray    SprayWindow
		degraded = map[string]bool{}
	)
	fail := func(u *Upstream, part string, err error) error {
		if errors.Is(err, ErrUnauthorized) {
			return err
		}
		g.upstreamFailed(u, err)
		mu.Lock()
		degraded[part] = true
		mu.Unlock()
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := g.weather.GetJSON(gctx, "/get_agri_data", q, bearer, &agri); err != nil {
			return fail(g.weather, PartWeather, err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := g.alerts.GetJSON(gctx, "/weather_alerts", q, bearer, &alerts); err != nil {
			return fail(g.alerts, PartAlerts, err)
		}
		return nil
	})
	eg.Go(func() error {
		if err := g.spray.GetJSON(gctx, "/spray_window", q, bearer, &spray); err != nil {
			return fail(g.spray, PartSpray, err)
		}
		return nil
	})
	if err := eg.Wait(); errors.Is(err, ErrUnauthorized) {
		g.unauthorized(w, r)
		return
	}

	data := DashboardData{Location: loc, Alerts: []string{}, Degraded: []string{}}

	if !degraded[PartWeather] {
		data.Weather = &agri.Weather
		data.WeatherSource = "backend"
		data.Recommendations = agri.Recommendations
	} else if g.stations != nil {
		if obs, km, ok := g.stations.Nearest(loc.Coordinates, g.cfg.StationMaxKm); ok {
			data.Weather = &WeatherReport{
				Temp:       obs.Temp,
				Humidity:   obs.Humidity,
				Pressure:   obs.Pressure,
				WindSpeed:  obs.WindSpeed,
				Visibility: obs.Visibility,
				Rain:       obs.Rain,
			}
			data.WeatherSource = "station:" + obs.StationID
			g.log.Debug("gateway: weather from station", zap.String("station", obs.StationID), zap.Float64("km", km))
		}
	}

	switch {
	case !degraded[PartAlerts]:
		data.Alerts = alerts.Alerts
		data.AlertsSource = "backend"
	case data.Weather != nil:
		data.Alerts = DeriveAlerts(*data.Weather)
		data.AlertsSource = "derived"
	}

	if !degraded[PartSpray] {
		data.Spray = &spray
	}

	for _, part := range []string{PartWeather, PartAlerts, PartSpray} {
		if degraded[part] {
			data.Degraded = append(data.Degraded, part)
		}
	}
	jsonutil.Write(w, http.StatusOK, data)
}

type predictRoute struct {
	path    string
	numbers []string
	texts   []string
	// result allocates the response variant; nil means PredictionResult.
	result  func() payload
}

func (pr predictRoute) newResult() payload {
	if pr.result == nil {
		return &PredictionResult{}
	}
	return pr.result()
}

func newCropRecommendation() payload { return &CropRecommendation{} }
func newDiseaseRisk() payload        { return &DiseaseRisk{} }

var predictRoutes = map[string]predictRoute{
	"yield":      {path: "/predict_yield", numbers: []string{"lat", "lon", "ozone", "soil"}},
	"fertilizer": {path: "/recommend_fertilizer", numbers: []string{"lat", "lon", "ozone", "soil", "ph"}, texts: []string{"stage"}},
	"stress":     {path: "/predict_stress", numbers: []string{"lat", "lon", "ozone", "temp", "humidity"}, texts: []string{"color", "symptom"}},
	"crop":       {path: "/recommend_crop", numbers: []string{"N", "P", "K", "temperature", "humidity", "ph", "rainfall", "ozone"}, result: newCropRecommendation},
	"disease":    {path: "/predict_disease_environmental", numbers: []string{"temperature", "humidity", "rainfall", "cloud_cover", "wind_speed", "leaf_wetness"}, result: newDiseaseRisk},
}

// checkParams copies the known parameters, checking presence and numeric format.
func (pr predictRoute) checkParams(in url.Values) (url.Values, *jsonutil.ErrorBody) {
	out := url.Values{}
	for _, k := range pr.numbers {
		v := strings.TrimSpace(in.Get(k))
		if v == "" {
			return nil, &jsonutil.ErrorBody{Error: "required", Field: k}
		}
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return nil, &jsonutil.ErrorBody{Error: "must be a number", Field: k}
		}
		out.Set(k, v)
	}
	for _, k := range pr.texts {
		v := strings.TrimSpace(in.Get(k))
		if v == "" {
			return nil, &jsonutil.ErrorBody{Error: "required", Field: k}
		}
		out.Set(k, v)
	}
	return out, nil
}

// HandlePredict forwards one model query after checking its parameters locally.
func (g *Gateway) HandlePredict(w http.ResponseWriter, r *http.Request) {
	route, ok := predictRoutes[chi.URLParam(r, "kind")]
	if !ok {
		jsonutil.WriteError(w, http.StatusNotFound, "unknown prediction kind")
		return
	}
	q, bad := route.checkParams(r.URL.Query())
	if bad != nil {
		jsonutil.Write(w, http.StatusUnprocessableEntity, bad)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()
	bearer := session.FromContext(r.Context()).Bearer()

	out := route.newResult()
	err := g.predict.GetJSON(ctx, route.path, q, bearer, out)
	if err == nil {
		jsonutil.Write(w, http.StatusOK, out)
		return
	}
	g.predictFailed(w, r, err)
}

func (g *Gateway) predictFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		g.unauthorized(w, r)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.upstreamFailed(g.predict, err)
		jsonutil.WriteError(w, http.StatusServiceUnavailable, "prediction service temporarily unavailable")
	default:
		g.upstreamFailed(g.predict, err)
		var se *StatusError
		if errors.As(err, &se) && se.clientError() {
			jsonutil.WriteError(w, http.StatusBadRequest, "prediction rejected the input")
			return
		}
		jsonutil.WriteError(w, http.StatusBadGateway, "prediction service error")
	}
}

// MaxUploadBytes caps leaf photos forwarded to the image classifier.
const MaxUploadBytes = 8 << 20

// HandleDetectDisease forwards one uploaded leaf photo (form field "file") to
// the image classifier.
func (g *Gateway) HandleDetectDisease(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes+1<<10)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonutil.WriteFieldError(w, http.StatusRequestEntityTooLarge, "file", "image too large")
			return
		}
		jsonutil.WriteFieldError(w, http.StatusBadRequest, "file", "an image file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, MaxUploadBytes+1))
	switch {
	case err != nil:
		jsonutil.WriteFieldError(w, http.StatusBadRequest, "file", "could not read upload")
		return
	case len(content) == 0:
		jsonutil.WriteFieldError(w, http.StatusBadRequest, "file", "an image file is required")
		return
	case len(content) > MaxUploadBytes:
		jsonutil.WriteFieldError(w, http.StatusRequestEntityTooLarge, "file", "image too large")
		return
	}
	if ct := http.DetectContentType(content); !strings.HasPrefix(ct, "image/") {
		jsonutil.WriteFieldError(w, http.StatusUnsupportedMediaType, "file", "not an image: "+ct)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.cfg.HTTPTimeout)
	defer cancel()
	bearer := session.FromContext(r.Context()).Bearer()

	var out DiseaseDiagnosis
	if err := g.predict.PostFile(ctx, "/detect_disease", path.Base(header.Filename), content, bearer, &out); err != nil {
		g.predictFailed(w, r, err)
		return
	}
	jsonutil.Write(w, http.StatusOK, out)
}
