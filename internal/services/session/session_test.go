package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(Options{
		HashKey:  []byte("0123456789abcdef0123456789abcdef"),
		BlockKey: []byte("fedcba9876543210fedcba9876543210"),
	}, nil)
}

func farmer() *Session {
	return &Session{Token: "jwt-abc", User: User{ID: "u1", Phone: "9876543210", Username: "User_3210"}}
}

func requestWithCookies(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

func TestSession_Bearer(t *testing.T) {
	assert.Equal(t, "Bearer jwt-abc", farmer().Bearer())
	assert.Empty(t, (&Session{}).Bearer())

	var nilSession *Session
	assert.False(t, nilSession.Authenticated())
}

func TestManager_PersistThenHydrate(t *testing.T) {
	m := testManager()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Persist(rec, httptest.NewRequest(http.MethodPost, "/", nil), farmer()))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.True(t, cookies[0].HttpOnly)

	got := m.Hydrate(requestWithCookies(cookies))
	assert.Equal(t, farmer(), got)
}

func TestManager_HydrateAnonymous(t *testing.T) {
	m := testManager()
	assert.False(t, m.Hydrate(httptest.NewRequest(http.MethodGet, "/", nil)).Authenticated())

	tampered := &http.Cookie{Name: "agri-session", Value: "not-a-valid-cookie"}
	assert.False(t, m.Hydrate(requestWithCookies([]*http.Cookie{tampered})).Authenticated())

	// a cookie signed with other keys is rejected
	other := NewManager(Options{}, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, other.Persist(rec, httptest.NewRequest(http.MethodPost, "/", nil), farmer()))
	assert.False(t, m.Hydrate(requestWithCookies(rec.Result().Cookies())).Authenticated())
}

func TestManager_PersistRequiresToken(t *testing.T) {
	err := testManager().Persist(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil), &Session{})
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_ClearExpiresCookie(t *testing.T) {
	m := testManager()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Persist(rec, httptest.NewRequest(http.MethodPost, "/", nil), farmer()))

	clearRec := httptest.NewRecorder()
	require.NoError(t, m.Clear(clearRec, requestWithCookies(rec.Result().Cookies())))
	cleared := clearRec.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Less(t, cleared[0].MaxAge, 0)
}

func TestMiddlewareAndRequire(t *testing.T) {
	m := testManager()
	var seen *Session
	h := m.Middleware(Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	login := httptest.NewRecorder()
	require.NoError(t, m.Persist(login, httptest.NewRequest(http.MethodPost, "/", nil), farmer()))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, requestWithCookies(login.Result().Cookies()))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "u1", seen.User.ID)
}

func TestFromContext_DefaultsToAnonymous(t *testing.T) {
	s := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	require.NotNil(t, s)
	assert.False(t, s.Authenticated())
}

func bearerRequest(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestMiddleware_BearerFallback(t *testing.T) {
	var calls int
	m := NewManager(Options{
		HashKey:  []byte("0123456789abcdef0123456789abcdef"),
		BlockKey: []byte("fedcba9876543210fedcba9876543210"),
		Verifier: TokenVerifierFunc(func(_ context.Context, token string) (User, error) {
			calls++
			if token != "cli-token" {
				return User{}, ErrInvalidToken
			}
			return farmer().User, nil
		}),
	}, nil)
	var got *Session
	h := m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))

	for header, want := range map[string]string{
		"Bearer cli-token":   "cli-token",
		"bearer  cli-token ": "cli-token",
		"Bearer forged":      "",
		"Basic abc":          "",
		"Bearer":             "",
		"":                   "",
	} {
		h.ServeHTTP(httptest.NewRecorder(), bearerRequest(header))
		assert.Equal(t, want, got.Token, header)
	}
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	assert.Equal(t, "u1", got.User.ID)
	assert.Equal(t, 2, calls, "cli-token is verified once, forged once")
}

func TestMiddleware_BearerIgnoredWithoutVerifier(t *testing.T) {
	m := testManager()
	rec := httptest.NewRecorder()
	m.Middleware(Require(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))).ServeHTTP(rec, bearerRequest("Bearer x"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddleware_BearerReverifiedAfterTTLAndClear(t *testing.T) {
	valid := true
	calls := 0
	m := NewManager(Options{
		VerifyTTL: time.Minute,
		Verifier: TokenVerifierFunc(func(context.Context, string) (User, error) {
			calls++
			if !valid {
				return User{}, ErrInvalidToken
			}
			return farmer().User, nil
		}),
	}, nil)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	m.bearer.now = func() time.Time { return now }

	var got *Session
	h := m.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	require.True(t, got.Authenticated())

	valid = false
	now = now.Add(30 * time.Second)
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	assert.True(t, got.Authenticated(), "cached within the ttl")
	assert.Equal(t, 1, calls)

	now = now.Add(31 * time.Second)
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	assert.False(t, got.Authenticated(), "re-verified after the ttl")
	assert.Equal(t, 2, calls)

	valid = true
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	require.True(t, got.Authenticated())
	require.NoError(t, m.Clear(httptest.NewRecorder(), bearerRequest("Bearer cli-token")))
	h.ServeHTTP(httptest.NewRecorder(), bearerRequest("Bearer cli-token"))
	assert.Equal(t, 4, calls, "clear drops the cached token")
}
