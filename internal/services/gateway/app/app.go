// Package app is the backend-for-frontend: it proxies the advisory backend
// with per-upstream circuit breakers and fills gaps from live station data.
package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/geo"
	"github.com/ritheshan/agri/internal/services/telemetry"
)

type Config struct {
	BackendURL  string
	HTTPTimeout time.Duration

	BreakerFailures int
	BreakerOpenFor  time.Duration
	Retry           RetryPolicy

	// StationMaxKm bounds how far a station observation may be used as a weather fallback.
	StationMaxKm float64

	Logger   *zap.Logger
	Metrics  *telemetry.Metrics
	Recorder telemetry.Recorder
}

// StationSource supplies live observations when the weather upstream is down.
type StationSource interface {
	Nearest(c geo.Coordinates, maxKm float64) (messages.WeatherObservation, float64, bool)
}

// SessionClearer drops the browser session after a backend rejects its token.
type SessionClearer interface {
	Clear(w http.ResponseWriter, r *http.Request) error
}

type Gateway struct {
	cfg      Config
	log      *zap.Logger
	rec      telemetry.Recorder
	stations StationSource
	sessions SessionClearer

	weather *Upstream
	alerts  *Upstream
	spray   *Upstream
	predict *Upstream
}

func NewGateway(cfg Config, stations StationSource, sessions SessionClearer) *Gateway {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = telemetry.Nop{}
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	if cfg.StationMaxKm <= 0 {
		cfg.StationMaxKm = 50
	}
	// One breaker per endpoint group: a failing model must not hide the weather.
	mk := func(name string) *Upstream {
		return NewUpstream(UpstreamConfig{
			Name:            name,
			BaseURL:         cfg.BackendURL,
			Timeout:         cfg.HTTPTimeout,
			BreakerFailures: cfg.BreakerFailures,
			BreakerOpenFor:  cfg.BreakerOpenFor,
			Retry:           cfg.Retry,
		}, cfg.Metrics, cfg.Logger)
	}
	return &Gateway{
		cfg:      cfg,
		log:      cfg.Logger,
		rec:      cfg.Recorder,
		stations: stations,
		sessions: sessions,
		weather:  mk("weather"),
		alerts:   mk("alerts"),
		spray:    mk("spray"),
		predict:  mk("predict"),
	}
}

func (g *Gateway) upstreams() []*Upstream {
	return []*Upstream{g.weather, g.alerts, g.spray, g.predict}
}

// Probe reports the upstreams whose breaker is open. It is not required for readiness:
// the dashboard degrades instead of failing.
func (g *Gateway) Probe() telemetry.Probe {
	return telemetry.Probe{
		Name: "backend",
		Check: func(_ context.Context) error {
			var open []string
			for _, u := range g.upstreams() {
				if u.Open() {
					open = append(open, u.Name())
				}
			}
			if len(open) > 0 {
				return errors.New("breaker open: " + strings.Join(open, ","))
			}
			return nil
		},
	}
}

func (g *Gateway) upstreamFailed(u *Upstream, err error) {
	g.log.Warn("upstream call failed", zap.String("upstream", u.Name()), zap.Error(err))
	g.rec.Record(messages.AdvisoryEvent{
		EventType: messages.EventUpstreamFailure,
		Source:    "gateway",
		Tags:      map[string]string{"upstream": u.Name(), "outcome": outcome(err)},
	})
}
