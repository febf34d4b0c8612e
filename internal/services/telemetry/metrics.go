package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a private registry.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	UpstreamCalls *prometheus.CounterVec
	BreakerState  *prometheus.GaugeVec
	Observations  *prometheus.CounterVec
	Portfolios    prometheus.Counter
	Gestures      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agri",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri",
			Name:      "upstream_calls_total",
			Help:      "Calls to backend collaborators by upstream and outcome.",
		}, []string{"upstream", "outcome"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "agri",
			Name:      "upstream_breaker_state",
			Help:      "Circuit breaker state per upstream (0 closed, 1 half-open, 2 open).",
		}, []string{"upstream"}),
		Observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri",
			Name:      "weather_observations_total",
			Help:      "Station observations received over MQTT by result.",
		}, []string{"result"}),
		Portfolios: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agri",
			Name:      "portfolio_computations_total",
			Help:      "Portfolio computations served.",
		}),
		Gestures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agri",
			Name:      "widget_gestures_total",
			Help:      "Completed widget gestures by kind.",
		}, []string{"kind"}),
	}
	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests, m.HTTPDuration, m.UpstreamCalls, m.BreakerState,
		m.Observations, m.Portfolios, m.Gestures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records count and latency keyed by the chi route pattern, not the raw path.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) ObserveUpstream(upstream, outcome string) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(upstream, outcome).Inc()
}

func (m *Metrics) SetBreakerState(upstream string, state float64) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(upstream).Set(state)
}

func (m *Metrics) CountObservation(result string) {
	if m == nil {
		return
	}
	m.Observations.WithLabelValues(result).Inc()
}

func (m *Metrics) CountPortfolio() {
	if m == nil {
		return
	}
	m.Portfolios.Inc()
}

func (m *Metrics) CountGesture(kind string) {
	if m == nil {
		return
	}
	m.Gestures.WithLabelValues(kind).Inc()
}
