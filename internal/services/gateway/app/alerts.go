package app

// Farming alert messages derived from current conditions.
const (
	AlertHeat         = "High temperature alert: consider providing shade for crops and increase irrigation"
	AlertCold         = "Cold temperature alert: protect sensitive crops from frost damage"
	AlertHumid        = "High humidity alert: increased risk of fungal diseases, monitor crops closely"
	AlertDry          = "Low humidity alert: increase irrigation frequency to prevent plant stress"
	AlertWind         = "High wind alert: avoid spraying pesticides and fertilizers"
	AlertHeavyRain    = "Heavy rain alert: delay irrigation and outdoor farming activities"
	AlertLightRain    = "Light rain detected: good time for planting, avoid chemical applications"
	AlertLowPressure  = "Low pressure system: expect weather changes, prepare for possible storms"
	AlertIdeal        = "Ideal weather conditions for most farming activities"
	AlertNoneToReport = "No weather alerts: conditions are normal for farming activities"
)

// DeriveAlerts applies the threshold rules to wr. The result is never empty.
func DeriveAlerts(wr WeatherReport) []string {
	var alerts []string

	switch {
	case wr.Temp > 35:
		alerts = append(alerts, AlertHeat)
	case wr.Temp < 10:
		alerts = append(alerts, AlertCold)
	}
	switch {
	case wr.Humidity > 85:
		alerts = append(alerts, AlertHumid)
	case wr.Humidity < 30:
		alerts = append(alerts, AlertDry)
	}
	if wr.WindSpeed > 25 {
		alerts = append(alerts, AlertWind)
	}
	switch {
	case wr.Rain > 10:
		alerts = append(alerts, AlertHeavyRain)
	case wr.Rain > 0:
		alerts = append(alerts, AlertLightRain)
	}
	if wr.Pressure < 1000 {
		alerts = append(alerts, AlertLowPressure)
	}
	if wr.Temp >= 20 && wr.Temp <= 30 && wr.Humidity >= 50 && wr.Humidity <= 70 && wr.WindSpeed <= 10 {
		alerts = append(alerts, AlertIdeal)
	}

	if len(alerts) == 0 {
		alerts = append(alerts, AlertNoneToReport)
	}
	return alerts
}
