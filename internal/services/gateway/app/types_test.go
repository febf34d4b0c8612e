package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeValidate(t *testing.T, raw string, p payload) error {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(raw), p))
	return p.Validate()
}

func TestWeatherReport_Aliases(t *testing.T) {
	var snake, camel WeatherReport
	require.NoError(t, decodeValidate(t, `{"temp":25.5,"humidity":65,"pressure":1012,"wind_speed":3.5,"visibility":10,"rain":0,"description":"scattered clouds"}`, &snake))
	require.NoError(t, decodeValidate(t, `{"temp":"25.5","humidity":65,"pressure":1012,"windSpeed":3.5,"visibility":10,"rain":0,"description":"scattered clouds"}`, &camel))
	assert.Equal(t, snake, camel)
	assert.Equal(t, 3.5, camel.WindSpeed)
}

func TestWeatherReport_MissingFields(t *testing.T) {
	var wr WeatherReport
	err := decodeValidate(t, `{"temp":25,"humidity":"high","pressure":1012,"visibility":10}`, &wr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "humidity")
	assert.Contains(t, err.Error(), "rain")
	assert.Contains(t, err.Error(), "wind_speed")
}

func TestPayloads_Sanitized(t *testing.T) {
	var a AgriData
	require.NoError(t, decodeValidate(t, `{"weather":{"temp":1,"humidity":1,"pressure":1,"wind_speed":1,"visibility":1,"rain":1,"description":"<b>haze</b>"},
		"recommendations":"<script>alert(1)</script>Use the dashboard"}`, &a))
	assert.Equal(t, "haze", a.Weather.Description)
	assert.Equal(t, "Use the dashboard", a.Recommendations)

	var p PredictionResult
	require.NoError(t, decodeValidate(t, `{"result":"Stress Level: <i>Low</i>","explanation":"ok"}`, &p))
	assert.Equal(t, "Stress Level: Low", p.Result)
}

func TestPayloads_Validation(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		p     payload
		valid bool
	}{
		{"prediction with null result", `{"result":null}`, &PredictionResult{}, false},
		{"crop recommended", `{"recommended_crop":"rice"}`, &CropRecommendation{}, true},
		{"crop with message only", `{"recommended_crop":null,"message":"No preferred crop available"}`, &CropRecommendation{}, true},
		{"crop with nothing", `{"recommended_crop":"  "}`, &CropRecommendation{}, false},
		{"spray ok", `{"result":"Best window","window":"6:00 to 9:00","confidence":0.7,"recommendation":"Ideal"}`, &SprayWindow{}, true},
		{"spray error body", `{"error":"Failed to calculate spray window"}`, &SprayWindow{}, false},
		{"spray confidence out of range", `{"result":"x","confidence":1.5}`, &SprayWindow{}, false},
		{"alerts", `{"alerts":["High wind alert"]}`, &WeatherAlerts{}, true},
		{"alerts empty", `{"alerts":["<br>"]}`, &WeatherAlerts{}, false},
		{"disease risk", `{"predicted_disease":"Healthy","confidence":0.9,"risk_level":"Low","recommendations":["Continue monitoring"]}`, &DiseaseRisk{}, true},
		{"disease risk error body", `{"error":"Prediction failed: model missing"}`, &DiseaseRisk{}, false},
		{"disease risk unknown level", `{"predicted_disease":"Black Rot","confidence":0.5,"risk_level":"Severe"}`, &DiseaseRisk{}, false},
		{"diagnosis", `{"prediction":"Tomato___healthy","confidence":0.97,"severity":"Low"}`, &DiseaseDiagnosis{}, true},
		{"diagnosis confidence out of range", `{"prediction":"Tomato___healthy","confidence":97}`, &DiseaseDiagnosis{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeValidate(t, tt.raw, tt.p)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
