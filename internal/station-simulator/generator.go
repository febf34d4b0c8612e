// Package stationsim publishes synthetic field weather station readings, so
// the gateway's station fallback can be exercised without real hardware.
package stationsim

import (
	"context"
	"math"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/internal/services/geo"
)

// Baseline is the mean around which readings wander.
type Baseline struct {
	Temp       float64
	Humidity   float64
	Pressure   float64
	WindSpeed  float64
	Visibility float64
}

// DefaultBaseline is a dry North Indian morning.
var DefaultBaseline = Baseline{Temp: 28, Humidity: 55, Pressure: 1008, WindSpeed: 3, Visibility: 8}

// diurnal swing of temperature, peaking at 14:00 local solar time
const diurnalAmplitude = 5.0

type Generator struct {
	mu      sync.Mutex
	station string
	coords  geo.Coordinates
	base    Baseline
	rng     *rand.Rand
	now     func() time.Time

	seeded   bool
	humidity float64
	wind     float64
	pressure float64
	rainLeft int
}

func NewGenerator(stationID string, c geo.Coordinates, seed int64) *Generator {
	return &Generator{
		station: stationID,
		coords:  c,
		base:    DefaultBaseline,
		rng:     rand.New(rand.NewSource(seed)),
		now:     time.Now,
	}
}

// SeedFromBackend takes the baseline from the weather backend once at start.
// On any failure the default baseline stays.
func (g *Generator) SeedFromBackend(ctx context.Context, weather *app.Upstream) error {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(g.coords.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(g.coords.Longitude, 'f', -1, 64))

	var agri app.AgriData
	if err := weather.GetJSON(ctx, "/get_agri_data", q, "", &agri); err != nil {
		return err
	}
	wr := agri.Weather

	g.mu.Lock()
	defer g.mu.Unlock()
	g.base = Baseline{
		Temp:       wr.Temp,
		Humidity:   wr.Humidity,
		Pressure:   wr.Pressure,
		WindSpeed:  wr.WindSpeed,
		Visibility: wr.Visibility,
	}
	g.seeded = false
	return nil
}

func (g *Generator) Baseline() Baseline {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.base
}

// Next advances the random walk and returns a reading stamped now.
func (g *Generator) Next() messages.WeatherObservation {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	if !g.seeded {
		g.humidity = g.base.Humidity
		g.wind = g.base.WindSpeed
		g.pressure = g.base.Pressure
		g.seeded = true
	}

	g.humidity = clamp(g.humidity+g.rng.NormFloat64()*2, 5, 100)
	g.wind = clamp(g.wind+g.rng.NormFloat64()*0.5, 0, 40)
	g.pressure = clamp(g.pressure+g.rng.NormFloat64()*0.3, 950, 1050)

	// showers last a few ticks once started
	rain := 0.0
	if g.rainLeft == 0 && g.humidity > 80 && g.rng.Float64() < 0.2 {
		g.rainLeft = 1 + g.rng.Intn(5)
	}
	if g.rainLeft > 0 {
		rain = round1(0.5 + g.rng.Float64()*12)
		g.rainLeft--
	}

	// local solar hour from longitude
	solar := float64(now.Hour()) + float64(now.Minute())/60 + g.coords.Longitude/15
	temp := g.base.Temp + diurnalAmplitude*math.Cos((solar-14)*math.Pi/12) + g.rng.NormFloat64()*0.4

	vis := g.base.Visibility
	if rain > 0 {
		vis = math.Max(0.5, vis-rain/2)
	}

	return messages.WeatherObservation{
		StationID:  g.station,
		Latitude:   g.coords.Latitude,
		Longitude:  g.coords.Longitude,
		Temp:       round1(temp),
		Humidity:   round1(g.humidity),
		Rain:       rain,
		WindSpeed:  round1(g.wind),
		Pressure:   round1(g.pressure),
		Visibility: round1(vis),
		Timestamp:  now,
	}
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(v, hi)) }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
