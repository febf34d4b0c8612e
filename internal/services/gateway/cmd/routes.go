package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/services/gateway/app"
	"github.com/ritheshan/agri/internal/services/profit"
	"github.com/ritheshan/agri/internal/services/session"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/internal/services/weatherfeed"
	"github.com/ritheshan/agri/internal/services/widget"
)

type server struct {
	log      *zap.Logger
	metrics  *telemetry.Metrics
	recorder telemetry.Recorder
	writer   *telemetry.Writer
	probes   []telemetry.Probe
	origins  []string
	history  *telemetry.History
	feed     *weatherfeed.Feed

	sessions *session.Manager
	auth     *session.AuthClient
	gateway  *app.Gateway
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Handle("/healthz", telemetry.NewHealthHandler(s.probes, s.writer))
	r.Handle("/readyz", telemetry.NewReadyHandler(s.probes, s.writer, 2*time.Second))
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(s.sessions.Middleware)

		r.Route("/auth", session.NewHandlers(s.sessions, s.auth, s.log, s.recorder).Routes)
		r.Route("/profit", func(r chi.Router) {
			r.Use(session.Require)
			profit.NewAPI(s.log, s.recorder, s.metrics, nil).Routes(r)
		})
		r.With(session.Require).Get("/stations/{id}/history", s.history.ServeHTTP)
		s.feed.Routes(r)
		r.Handle("/widget/stream", widget.NewStreamHandler(s.log, s.recorder, s.metrics, s.origins))
		s.gateway.Routes(r)
	})
	return r
}
