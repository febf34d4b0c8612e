// Package geo resolves the coordinates used for weather lookups. Location is
// an asynchronous task with explicit outcomes: a device fix, or the default
// coordinates with the reason the device could not be used.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
)

// DefaultCoordinates is New Delhi.
var DefaultCoordinates = Coordinates{Latitude: 28.6139, Longitude: 77.2090}

type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (c Coordinates) Valid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

type Source string

const (
	SourceDevice   Source = "device"
	SourceFallback Source = "fallback"
)

// Reasons attached to a fallback result.
const (
	ReasonDenied      = "permission_denied"
	ReasonUnavailable = "unavailable"
	ReasonError       = "error"
)

type Result struct {
	Coordinates Coordinates `json:"coordinates"`
	Source      Source      `json:"source"`
	Reason      string      `json:"reason,omitempty"`
}

type Provider interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (Coordinates, error)

func (f ProviderFunc) Locate(ctx context.Context) (Coordinates, error) { return f(ctx) }

// Pending is an in-flight lookup. Wait may be called any number of times.
type Pending struct {
	done chan struct{}
	res  Result
}

// Resolve starts p.Locate on its own goroutine. The goroutine ends when the
// provider returns; providers must honour ctx.
func Resolve(ctx context.Context, p Provider) *Pending {
	pd := &Pending{done: make(chan struct{})}
	go func() {
		defer close(pd.done)
		if p == nil {
			pd.res = fallback(ReasonUnavailable)
			return
		}
		c, err := p.Locate(ctx)
		pd.res = classify(c, err)
	}()
	return pd
}

// Wait blocks for the result. If ctx ends first the default coordinates are
// returned with ReasonUnavailable; the lookup keeps running until its own context ends.
func (p *Pending) Wait(ctx context.Context) Result {
	select {
	case <-p.done:
		return p.res
	case <-ctx.Done():
		return fallback(ReasonUnavailable)
	}
}

func classify(c Coordinates, err error) Result {
	switch {
	case err == nil && c.Valid():
		return Result{Coordinates: c, Source: SourceDevice}
	case errors.Is(err, ErrPermissionDenied):
		return fallback(ReasonDenied)
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fallback(ReasonUnavailable)
	default:
		return fallback(ReasonError)
	}
}

func fallback(reason string) Result {
	return Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: reason}
}

// QueryProvider reads a browser-supplied fix from lat/lon, or the browser's
// failure from geo_error=denied|unavailable.
func QueryProvider(r *http.Request) Provider {
	q := r.URL.Query()
	return ProviderFunc(func(context.Context) (Coordinates, error) {
		switch q.Get("geo_error") {
		case "":
		case "denied":
			return Coordinates{}, ErrPermissionDenied
		case "unavailable", "timeout":
			return Coordinates{}, ErrUnavailable
		default:
			return Coordinates{}, fmt.Errorf("geolocation: %s", q.Get("geo_error"))
		}
		if q.Get("lat") == "" && q.Get("lon") == "" {
			return Coordinates{}, ErrUnavailable
		}
		lat, err := strconv.ParseFloat(q.Get("lat"), 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("geolocation: lat: %w", err)
		}
		lon, err := strconv.ParseFloat(q.Get("lon"), 64)
		if err != nil {
			return Coordinates{}, fmt.Errorf("geolocation: lon: %w", err)
		}
		c := Coordinates{Latitude: lat, Longitude: lon}
		if !c.Valid() {
			return Coordinates{}, fmt.Errorf("geolocation: out of range %v,%v", lat, lon)
		}
		return c, nil
	})
}

const earthRadiusKm = 6371.0

// DistanceKm is the haversine distance between a and b.
func DistanceKm(a, b Coordinates) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(b.Latitude - a.Latitude)
	dLon := toRad(b.Longitude - a.Longitude)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
