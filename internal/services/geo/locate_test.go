package geo

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixed(c Coordinates, err error) Provider {
	return ProviderFunc(func(context.Context) (Coordinates, error) { return c, err })
}

func TestResolve_Branches(t *testing.T) {
	pune := Coordinates{Latitude: 18.5204, Longitude: 73.8567}
	tests := []struct {
		name     string
		provider Provider
		want     Result
	}{
		{"device fix", fixed(pune, nil), Result{Coordinates: pune, Source: SourceDevice}},
		{"denied", fixed(Coordinates{}, ErrPermissionDenied), Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonDenied}},
		{"unavailable", fixed(Coordinates{}, ErrUnavailable), Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonUnavailable}},
		{"wrapped denied", fixed(Coordinates{}, errors.Join(errors.New("browser"), ErrPermissionDenied)), Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonDenied}},
		{"other error", fixed(Coordinates{}, errors.New("gps exploded")), Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonError}},
		{"invalid fix", fixed(Coordinates{Latitude: 200}, nil), Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonError}},
		{"no provider", nil, Result{Coordinates: DefaultCoordinates, Source: SourceFallback, Reason: ReasonUnavailable}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(context.Background(), tt.provider).Wait(context.Background())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPending_WaitTimesOut(t *testing.T) {
	lookupCtx, cancelLookup := context.WithCancel(context.Background())
	defer cancelLookup()

	slow := ProviderFunc(func(ctx context.Context) (Coordinates, error) {
		<-ctx.Done()
		return Coordinates{}, ctx.Err()
	})
	p := Resolve(lookupCtx, slow)

	waitCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	got := p.Wait(waitCtx)
	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, ReasonUnavailable, got.Reason)

	cancelLookup()
	// once the lookup finishes its own cancellation is reported as unavailable too
	assert.Equal(t, ReasonUnavailable, p.Wait(context.Background()).Reason)
}

func TestQueryProvider(t *testing.T) {
	tests := []struct {
		query  string
		source Source
		reason string
	}{
		{"?lat=12.97&lon=77.59", SourceDevice, ""},
		{"?geo_error=denied", SourceFallback, ReasonDenied},
		{"?geo_error=timeout", SourceFallback, ReasonUnavailable},
		{"?geo_error=weird", SourceFallback, ReasonError},
		{"", SourceFallback, ReasonUnavailable},
		{"?lat=abc&lon=1", SourceFallback, ReasonError},
		{"?lat=95&lon=1", SourceFallback, ReasonError},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/dashboard"+tt.query, nil)
			got := Resolve(context.Background(), QueryProvider(r)).Wait(context.Background())
			assert.Equal(t, tt.source, got.Source)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestDistanceKm(t *testing.T) {
	mumbai := Coordinates{Latitude: 19.0760, Longitude: 72.8777}
	assert.InDelta(t, 1150, DistanceKm(DefaultCoordinates, mumbai), 15)
	assert.Zero(t, DistanceKm(mumbai, mumbai))
}
