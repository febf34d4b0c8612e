// Package session holds the signed-in farmer's token and profile. The session
// is created by login, restored from a signed cookie (browser) or a token file
// (CLI), and cleared by logout or when a backend rejects the token.
package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

var ErrNoSession = errors.New("no session")

type User struct {
	ID       string `json:"id"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
}

// Session is the explicit auth state. The zero value is anonymous.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (s *Session) Authenticated() bool { return s != nil && s.Token != "" }

// Bearer returns the Authorization header value, or "" when anonymous.
func (s *Session) Bearer() string {
	if !s.Authenticated() {
		return ""
	}
	return "Bearer " + s.Token
}

const (
	tokenKey    = "agri_token"
	userIDKey   = "user_id"
	phoneKey    = "phone"
	usernameKey = "username"
)

// Manager stores the session in a signed and encrypted cookie.
type Manager struct {
	store  *sessions.CookieStore
	name   string
	log    *zap.Logger
	bearer *bearerCache
}

type Options struct {
	// HashKey signs the cookie and must be at least 32 bytes; BlockKey encrypts it (16, 24 or 32 bytes).
	// Empty keys are replaced by random ones, which invalidates cookies on restart.
	HashKey  []byte
	BlockKey []byte
	Name     string
	MaxAge   time.Duration
	Secure   bool

	// Verifier checks "Authorization: Bearer" tokens sent by cookieless
	// clients. Without one those headers are ignored. Accepted tokens are
	// re-checked after VerifyTTL (default one minute).
	Verifier  TokenVerifier
	VerifyTTL time.Duration
}

func NewManager(opts Options, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.HashKey) == 0 {
		log.Warn("session: no hash key configured, generating an ephemeral one")
		opts.HashKey = securecookie.GenerateRandomKey(32)
	}
	if len(opts.BlockKey) == 0 {
		opts.BlockKey = securecookie.GenerateRandomKey(32)
	}
	if opts.Name == "" {
		opts.Name = "agri-session"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour // matches the auth token lifetime
	}

	store := sessions.NewCookieStore(opts.HashKey, opts.BlockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.MaxAge.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	m := &Manager{store: store, name: opts.Name, log: log}
	if opts.Verifier != nil {
		m.bearer = newBearerCache(opts.Verifier, opts.VerifyTTL, log)
	}
	return m
}

// Hydrate restores the session from the request cookie. A missing, expired or
// tampered cookie yields an anonymous session; only the last case is logged loudly.
func (m *Manager) Hydrate(r *http.Request) *Session {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		var cerr securecookie.Error
		if errors.As(err, &cerr) && cerr.IsDecode() {
			m.log.Warn("session: cookie rejected", zap.String("path", r.URL.Path), zap.Error(err))
		} else {
			m.log.Debug("session: starting fresh", zap.Error(err))
		}
		return &Session{}
	}
	s := &Session{
		Token: stringValue(sess, tokenKey),
		User: User{
			ID:       stringValue(sess, userIDKey),
			Phone:    stringValue(sess, phoneKey),
			Username: stringValue(sess, usernameKey),
		},
	}
	if !s.Authenticated() {
		return &Session{}
	}
	return s
}

// Persist writes s into the response cookie.
func (m *Manager) Persist(w http.ResponseWriter, r *http.Request, s *Session) error {
	if !s.Authenticated() {
		return ErrNoSession
	}
	sess, _ := m.store.Get(r, m.name)
	sess.Values[tokenKey] = s.Token
	sess.Values[userIDKey] = s.User.ID
	sess.Values[phoneKey] = s.User.Phone
	sess.Values[usernameKey] = s.User.Username
	return sess.Save(r, w)
}

// Clear expires the cookie and forgets a verified bearer token sent with r.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	if m.bearer != nil {
		if token := bearerToken(r.Header.Get("Authorization")); token != "" {
			m.bearer.forget(token)
		}
	}
	sess, _ := m.store.Get(r, m.name)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

func stringValue(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}
