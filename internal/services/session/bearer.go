package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TokenVerifier resolves a bearer token to its account. *AuthClient is the
// production implementation.
type TokenVerifier interface {
	Profile(ctx context.Context, token string) (User, error)
}

type TokenVerifierFunc func(ctx context.Context, token string) (User, error)

func (f TokenVerifierFunc) Profile(ctx context.Context, token string) (User, error) {
	return f(ctx, token)
}

const (
	defaultVerifyTTL   = time.Minute
	maxVerifiedTokens  = 1024
	verifyCallDeadline = 3 * time.Second
)

type verifiedToken struct {
	user    User
	expires time.Time
}

// bearerCache remembers accepted tokens for ttl. Rejected tokens are not
// cached, so a freshly issued token works on its first request.
type bearerCache struct {
	verifier TokenVerifier
	ttl      time.Duration
	now      func() time.Time
	log      *zap.Logger

	mu     sync.Mutex
	tokens map[string]verifiedToken
}

func newBearerCache(v TokenVerifier, ttl time.Duration, log *zap.Logger) *bearerCache {
	if ttl <= 0 {
		ttl = defaultVerifyTTL
	}
	return &bearerCache{verifier: v, ttl: ttl, now: time.Now, log: log, tokens: map[string]verifiedToken{}}
}

func (c *bearerCache) resolve(ctx context.Context, token string) *Session {
	now := c.now()
	c.mu.Lock()
	hit, ok := c.tokens[token]
	c.mu.Unlock()
	if ok && now.Before(hit.expires) {
		return &Session{Token: token, User: hit.user}
	}

	ctx, cancel := context.WithTimeout(ctx, verifyCallDeadline)
	defer cancel()
	user, err := c.verifier.Profile(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrInvalidToken) {
			c.log.Warn("session: bearer verification failed", zap.Error(err))
		}
		c.mu.Lock()
		delete(c.tokens, token)
		c.mu.Unlock()
		return &Session{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tokens) >= maxVerifiedTokens {
		for k, v := range c.tokens {
			if !now.Before(v.expires) {
				delete(c.tokens, k)
			}
		}
		if len(c.tokens) >= maxVerifiedTokens {
			c.tokens = map[string]verifiedToken{}
		}
	}
	c.tokens[token] = verifiedToken{user: user, expires: now.Add(c.ttl)}
	return &Session{Token: token, User: user}
}

// forget drops token so the next request re-verifies it.
func (c *bearerCache) forget(token string) {
	c.mu.Lock()
	delete(c.tokens, token)
	c.mu.Unlock()
}
