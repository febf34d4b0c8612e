package session

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/model/messages"
	"github.com/ritheshan/agri/internal/services/telemetry"
	"github.com/ritheshan/agri/pkg/jsonutil"
)

// Handlers serve /api/auth. The token itself never leaves the server.
type Handlers struct {
	mgr  *Manager
	auth *AuthClient
	log  *zap.Logger
	rec  telemetry.Recorder
}

func NewHandlers(mgr *Manager, auth *AuthClient, log *zap.Logger, rec telemetry.Recorder) *Handlers {
	if log == nil {
		log = zap.NewNop()
	}
	if rec == nil {
		rec = telemetry.Nop{}
	}
	return &Handlers{mgr: mgr, auth: auth, log: log, rec: rec}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
	r.Get("/session", h.handleSession)
}

type sessionView struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

func viewOf(s *Session) sessionView {
	if !s.Authenticated() {
		return sessionView{}
	}
	u := s.User
	return sessionView{Authenticated: true, User: &u}
}

func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := jsonutil.Decode(r, &req, 4096); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.auth.Login(r.Context(), req.Phone, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		jsonutil.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	case err != nil:
		h.log.Warn("session: login failed", zap.Error(err))
		jsonutil.WriteError(w, http.StatusBadGateway, "auth service unavailable")
		return
	}
	if err := h.mgr.Persist(w, r, s); err != nil {
		h.log.Error("session: persist failed", zap.Error(err))
		jsonutil.WriteError(w, http.StatusInternalServerError, "could not store session")
		return
	}
	h.rec.Record(messages.AdvisoryEvent{EventType: messages.EventLogin, Source: "session"})
	jsonutil.Write(w, http.StatusOK, viewOf(s))
}

func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := jsonutil.Decode(r, &req, 4096); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	s, err := h.auth.Register(r.Context(), req.Phone, req.Password, req.Username)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		jsonutil.WriteError(w, http.StatusUnprocessableEntity, "phone and password are required")
		return
	case errors.Is(err, ErrAlreadyRegistered):
		jsonutil.WriteFieldError(w, http.StatusConflict, "phone", err.Error())
		return
	case err != nil:
		h.log.Warn("session: register failed", zap.Error(err))
		jsonutil.WriteError(w, http.StatusBadGateway, "auth service unavailable")
		return
	}
	if err := h.mgr.Persist(w, r, s); err != nil {
		h.log.Error("session: persist failed", zap.Error(err))
		jsonutil.WriteError(w, http.StatusInternalServerError, "could not store session")
		return
	}
	h.rec.Record(messages.AdvisoryEvent{EventType: messages.EventRegister, Source: "session"})
	jsonutil.Write(w, http.StatusCreated, viewOf(s))
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	was := h.mgr.Hydrate(r).Authenticated()
	if err := h.mgr.Clear(w, r); err != nil {
		h.log.Warn("session: clear failed", zap.Error(err))
	}
	if was {
		h.rec.Record(messages.AdvisoryEvent{EventType: messages.EventLogout, Source: "session"})
	}
	jsonutil.Write(w, http.StatusOK, sessionView{})
}

func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	jsonutil.Write(w, http.StatusOK, viewOf(h.mgr.Hydrate(r)))
}
