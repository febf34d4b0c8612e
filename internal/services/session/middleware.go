package session

import (
	"context"
	"net/http"
	"strings"

	"github.com/ritheshan/agri/pkg/jsonutil"
)

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext never returns nil; requests without a session are anonymous.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok && s != nil {
		return s
	}
	return &Session{}
}

// Middleware hydrates the session on every request. Clients without cookies,
// such as agrictl, may send "Authorization: Bearer <token>" instead; the token
// only counts once the configured verifier accepts it.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Hydrate(r)
		if !s.Authenticated() && m.bearer != nil {
			if token := bearerToken(r.Header.Get("Authorization")); token != "" {
				s = m.bearer.resolve(r.Context(), token)
			}
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

func bearerToken(h string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Require rejects anonymous requests with 401.
func Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Authenticated() {
			jsonutil.WriteError(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
