package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritheshan/agri/internal/services/telemetry"
)

const alertsBody = `{"alerts":["High wind alert"]}`

func testUpstream(base string, m *telemetry.Metrics) *Upstream {
	return NewUpstream(UpstreamConfig{
		Name:            "alerts",
		BaseURL:         base,
		Timeout:         time.Second,
		BreakerFailures: 3,
		BreakerOpenFor:  time.Minute,
		Retry:           RetryPolicy{MaxAttempts: 3, Initial: time.Millisecond, MaxElapsed: time.Second},
	}, m, nil)
}

func TestUpstream_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather_alerts", r.URL.Path)
		assert.Equal(t, "28.6", r.URL.Query().Get("lat"))
		assert.Equal(t, "Bearer t0k", r.Header.Get("Authorization"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(alertsBody))
	}))
	defer srv.Close()

	m := telemetry.NewMetrics()
	var out WeatherAlerts
	err := testUpstream(srv.URL, m).GetJSON(context.Background(), "weather_alerts", url.Values{"lat": {"28.6"}}, "Bearer t0k", &out)
	require.NoError(t, err)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, []string{"High wind alert"}, out.Alerts)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("alerts", "ok")))
}

func TestUpstream_ClientErrorsAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"expired"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"bad request", http.StatusBadRequest, `{"result":null}`, func(t *testing.T, err error) {
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, http.StatusBadRequest, se.Code)
		}},
		{"invalid payload", http.StatusOK, `{"alerts":[]}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidResponse)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				hits.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			var out WeatherAlerts
			err := testUpstream(srv.URL, nil).GetJSON(context.Background(), "/weather_alerts", nil, "", &out)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestUpstream_BreakerOpensAndShortCircuits(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := telemetry.NewMetrics()
	u := testUpstream(srv.URL, m)
	var out WeatherAlerts

	// three attempts in one call reach the failure threshold
	err := u.GetJSON(context.Background(), "/weather_alerts", nil, "", &out)
	require.Error(t, err)
	assert.True(t, u.Open())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("alerts")))

	before := hits.Load()
	err = u.GetJSON(context.Background(), "/weather_alerts", nil, "", &out)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("alerts", "breaker_open")))
}

func TestUpstream_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	u := testUpstream(srv.URL, nil)
	for i := 0; i < 5; i++ {
		var out WeatherAlerts
		_ = u.GetJSON(context.Background(), "/weather_alerts", nil, "", &out)
	}
	assert.False(t, u.Open())
}

func TestUpstream_NotConfigured(t *testing.T) {
	var out WeatherAlerts
	err := testUpstream("", nil).GetJSON(context.Background(), "/weather_alerts", nil, "", &out)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
