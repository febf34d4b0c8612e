package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ritheshan/agri/internal/services/geo"
)

// strict strips every tag from backend display strings before they reach the browser.
var strict = bluemonday.StrictPolicy()

func clean(s string) string { return strings.TrimSpace(strict.Sanitize(s)) }

// ---------- Upstream payloads ----------

// WeatherReport is current conditions in metric units (°C, %, hPa, m/s, km, mm).
type WeatherReport struct {
	Temp        float64 `json:"temp"`
	Humidity    float64 `json:"humidity"`
	Pressure    float64 `json:"pressure"`
	WindSpeed   float64 `json:"wind_speed"`
	Visibility  float64 `json:"visibility"`
	Rain        float64 `json:"rain"`
	Clouds      float64 `json:"clouds,omitempty"`
	Description string  `json:"description,omitempty"`

	missing []string
}

var requiredWeather = []string{"temp", "humidity", "rain", "wind_speed", "pressure", "visibility"}

// UnmarshalJSON accepts numbers or numeric strings and both windSpeed and
// wind_speed. Missing required fields are reported by Validate.
func (wr *WeatherReport) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*wr = WeatherReport{}
	if _, ok := m["wind_speed"]; !ok {
		if v, ok := m["windSpeed"]; ok {
			m["wind_speed"] = v
		}
	}
	targets := map[string]*float64{
		"temp":       &wr.Temp,
		"humidity":   &wr.Humidity,
		"rain":       &wr.Rain,
		"wind_speed": &wr.WindSpeed,
		"pressure":   &wr.Pressure,
		"visibility": &wr.Visibility,
	}
	for _, key := range requiredWeather {
		n, ok := number(m[key])
		if !ok {
			wr.missing = append(wr.missing, key)
			continue
		}
		*targets[key] = n
	}
	if n, ok := number(m["clouds"]); ok {
		wr.Clouds = n
	}
	if s, ok := m["description"].(string); ok {
		wr.Description = s
	}
	return nil
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func (wr *WeatherReport) Validate() error {
	if len(wr.missing) > 0 {
		return fmt.Errorf("weather: missing or non-numeric %s", strings.Join(wr.missing, ", "))
	}
	for name, v := range map[string]float64{
		"temp": wr.Temp, "humidity": wr.Humidity, "rain": wr.Rain,
		"wind_speed": wr.WindSpeed, "pressure": wr.Pressure, "visibility": wr.Visibility,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weather: %s is not finite", name)
		}
	}
	wr.Description = clean(wr.Description)
	return nil
}

// AgriData is the /get_agri_data answer.
type AgriData struct {
	Weather         WeatherReport `json:"weather"`
	Recommendations string        `json:"recommendations"`
}

func (a *AgriData) Validate() error {
	if err := a.Weather.Validate(); err != nil {
		return err
	}
	a.Recommendations = clean(a.Recommendations)
	return nil
}

// PredictionResult is the answer of the yield, fertilizer and stress models.
type PredictionResult struct {
	Result      string `json:"result"`
	Explanation string `json:"explanation,omitempty"`
}

func (p *PredictionResult) Validate() error {
	p.Result = clean(p.Result)
	p.Explanation = clean(p.Explanation)
	if p.Result == "" {
		return errors.New("prediction: empty result")
	}
	return nil
}

// CropRecommendation carries either a crop or a message explaining why there is none.
type CropRecommendation struct {
	RecommendedCrop *string `json:"recommended_crop"`
	Message         string  `json:"message,omitempty"`
}

func (c *CropRecommendation) Validate() error {
	if c.RecommendedCrop != nil {
		crop := clean(*c.RecommendedCrop)
		if crop == "" {
			c.RecommendedCrop = nil
		} else {
			c.RecommendedCrop = &crop
		}
	}
	c.Message = clean(c.Message)
	if c.RecommendedCrop == nil && c.Message == "" {
		return errors.New("crop recommendation: neither crop nor message")
	}
	return nil
}

// DiseaseRisk is the environmental disease model's answer. The model reports
// its own failures as {"error": ...} with a 200 status.
type DiseaseRisk struct {
	PredictedDisease string             `json:"predicted_disease"`
	Confidence       float64            `json:"confidence"`
	RiskLevel        string             `json:"risk_level"`
	Conditions       map[string]float64 `json:"environmental_conditions,omitempty"`
	Recommendations  []string           `json:"recommendations"`
	Error            string             `json:"error,omitempty"`
}

func (d *DiseaseRisk) Validate() error {
	if d.Error != "" {
		return fmt.Errorf("disease risk: %s", clean(d.Error))
	}
	d.PredictedDisease = clean(d.PredictedDisease)
	d.RiskLevel = clean(d.RiskLevel)
	d.Recommendations = cleanList(d.Recommendations)
	switch {
	case d.PredictedDisease == "":
		return errors.New("disease risk: empty prediction")
	case !validConfidence(d.Confidence):
		return fmt.Errorf("disease risk: confidence %v out of range", d.Confidence)
	}
	switch d.RiskLevel {
	case "Low", "Medium", "High":
	default:
		return fmt.Errorf("disease risk: unknown risk level %q", d.RiskLevel)
	}
	return nil
}

// DiseaseDiagnosis is the image classifier's answer for one leaf photo.
type DiseaseDiagnosis struct {
	Prediction       string   `json:"prediction"`
	Confidence       float64  `json:"confidence"`
	Recommendations  []string `json:"recommendations"`
	Severity         string   `json:"severity"`
	TreatmentUrgency string   `json:"treatment_urgency"`
	UsingFallback    bool     `json:"using_fallback"`
}

func (d *DiseaseDiagnosis) Validate() error {
	d.Prediction = clean(d.Prediction)
	d.Severity = clean(d.Severity)
	d.TreatmentUrgency = clean(d.TreatmentUrgency)
	d.Recommendations = cleanList(d.Recommendations)
	switch {
	case d.Prediction == "":
		return errors.New("disease diagnosis: empty prediction")
	case !validConfidence(d.Confidence):
		return fmt.Errorf("disease diagnosis: confidence %v out of range", d.Confidence)
	}
	return nil
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c >= 0 && c <= 1
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = clean(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SprayWindow is the best 3-hour spraying window with a confidence in [0, 1].
type SprayWindow struct {
	Result         string  `json:"result"`
	Window         string  `json:"window"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

func (s *SprayWindow) Validate() error {
	s.Result = clean(s.Result)
	s.Window = clean(s.Window)
	s.Recommendation = clean(s.Recommendation)
	switch {
	case s.Result == "":
		return errors.New("spray window: empty result")
	case !validConfidence(s.Confidence):
		return fmt.Errorf("spray window: confidence %v out of range", s.Confidence)
	}
	return nil
}

type WeatherAlerts struct {
	Alerts []string `json:"alerts"`
}

func (w *WeatherAlerts) Validate() error {
	out := cleanList(w.Alerts)
	if len(out) == 0 {
		return errors.New("weather alerts: empty list")
	}
	w.Alerts = out
	return nil
}

// ---------- Dashboard ----------

// Parts of the dashboard that can degrade independently.
const (
	PartWeather = "weather"
	PartAlerts  = "alerts"
	PartSpray   = "spray_window"
)

type DashboardData struct {
	Location        geo.Result     `json:"location"`
	Weather         *WeatherReport `json:"weather"`
	WeatherSource   string         `json:"weather_source,omitempty"`
	Recommendations string         `json:"recommendations,omitempty"`
	Alerts          []string       `json:"alerts"`
	AlertsSource    string         `json:"alerts_source,omitempty"`
	Spray           *SprayWindow   `json:"spray_window"`
	Degraded        []string       `json:"degraded"`
}

// Validate lets clients of the gateway decode the dashboard through an Upstream.
func (d *DashboardData) Validate() error {
	if !d.Location.Coordinates.Valid() {
		return fmt.Errorf("%w: location out of range", ErrInvalidResponse)
	}
	if d.Weather != nil {
		if err := d.Weather.Validate(); err != nil {
			return err
		}
	}
	if d.Spray != nil {
		if err := d.Spray.Validate(); err != nil {
			return err
		}
	}
	if d.Alerts == nil {
		d.Alerts = []string{}
	}
	return nil
}
