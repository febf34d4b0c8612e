package messages

import "time"

// WeatherObservation is published by field weather stations on weather/observations/<station>.
type WeatherObservation struct {
	StationID  string    `json:"station_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Temp       float64   `json:"temp"`       // °C
	Humidity   float64   `json:"humidity"`   // %
	Rain       float64   `json:"rain"`       // mm last hour
	WindSpeed  float64   `json:"wind_speed"` // m/s
	Pressure   float64   `json:"pressure"`   // hPa
	Visibility float64   `json:"visibility"` // km
	Timestamp  time.Time `json:"timestamp"`
}
