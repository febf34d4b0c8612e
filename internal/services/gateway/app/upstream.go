package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ritheshan/agri/internal/services/telemetry"
)

var (
	ErrUnauthorized    = errors.New("upstream rejected the session token")
	ErrInvalidResponse = errors.New("upstream response failed validation")
	ErrNotConfigured   = errors.New("upstream not configured")
)

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Upstream string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s upstream status %d", e.Upstream, e.Code)
	}
	return fmt.Sprintf("%s upstream status %d: %s", e.Upstream, e.Code, e.Body)
}

func (e *StatusError) clientError() bool { return e.Code >= 400 && e.Code < 500 }

// isClientFault reports errors caused by the request rather than the upstream.
// They neither trip the breaker nor get retried.
func isClientFault(err error) bool {
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.clientError()
}

// payload is a tagged upstream variant checked at the boundary.
type payload interface {
	Validate() error
}

type RetryPolicy struct {
	MaxAttempts int
	Initial     time.Duration
	MaxElapsed  time.Duration
}

// Upstream is one backend endpoint group behind its own circuit breaker.
type Upstream struct {
	name    string
	base    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryPolicy
	metrics *telemetry.Metrics
	log     *zap.Logger
}

type UpstreamConfig struct {
	Name            string
	BaseURL         string
	Timeout         time.Duration
	BreakerFailures int
	BreakerOpenFor  time.Duration
	Retry           RetryPolicy
}

func NewUpstream(cfg UpstreamConfig, metrics *telemetry.Metrics, log *zap.Logger) *Upstream {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BreakerFailures < 1 {
		cfg.BreakerFailures = 5
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	u := &Upstream{
		name:    cfg.Name,
		base:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   cfg.Retry,
		metrics: metrics,
		log:     log.With(zap.String("upstream", cfg.Name)),
	}
	fails := uint32(cfg.BreakerFailures)
	u.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.BreakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= fails
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientFault(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			u.log.Info("breaker state change", zap.String("from", from.String()), zap.String("to", to.String()))
			metrics.SetBreakerState(name, float64(to))
		},
	})
	return u
}

func (u *Upstream) Name() string { return u.name }

// Open reports whether the breaker currently rejects calls.
func (u *Upstream) Open() bool { return u.breaker.State() == gobreaker.StateOpen }

// GetJSON performs an idempotent GET of path with query, forwarding bearer
// when set, decodes the body into out and validates it. Transport errors and
// 5xx answers are retried with exponential backoff; 4xx answers, validation
// failures and an open breaker are not.
func (u *Upstream) GetJSON(ctx context.Context, path string, query url.Values, bearer string, out payload) error {
	if u == nil || u.base == "" {
		return ErrNotConfigured
	}
	target := u.base + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	eb := backoff.NewExponentialBackOff()
	if u.retry.Initial > 0 {
		eb.InitialInterval = u.retry.Initial
	}
	if u.retry.MaxElapsed > 0 {
		eb.MaxElapsedTime = u.retry.MaxElapsed
	}
	var b backoff.BackOff = backoff.WithMaxRetries(eb, uint64(u.retry.MaxAttempts-1))
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(func() error {
		_, err := u.breaker.Execute(func() (any, error) {
			return nil, u.fetch(ctx, target, bearer, out)
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests),
			errors.Is(err, ErrInvalidResponse), isClientFault(err):
			return backoff.Permanent(err)
		}
		u.log.Debug("upstream attempt failed", zap.Error(err))
		return err
	}, b)

	u.metrics.ObserveUpstream(u.name, outcome(err))
	if err != nil {
		return fmt.Errorf("%s GET %s: %w", u.name, path, err)
	}
	return nil
}

// PostFile uploads content as the multipart form field "file" and decodes the
// answer into out. Uploads are sent once: they go through the breaker but are
// never retried.
func (u *Upstream) PostFile(ctx context.Context, path, filename string, content []byte, bearer string, out payload) error {
	if u == nil || u.base == "" {
		return ErrNotConfigured
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = part.Write(content)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return fmt.Errorf("%s POST %s: encode upload: %w", u.name, path, err)
	}

	target := u.base + "/" + strings.TrimLeft(path, "/")
	_, err = u.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body.Bytes()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return nil, u.do(req, bearer, out)
	})
	u.metrics.ObserveUpstream(u.name, outcome(err))
	if err != nil {
		return fmt.Errorf("%s POST %s: %w", u.name, path, err)
	}
	return nil
}

func (u *Upstream) fetch(ctx context.Context, target, bearer string, out payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	return u.do(req, bearer, out)
}

func (u *Upstream) do(req *http.Request, bearer string, out payload) error {
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return &StatusError{Upstream: u.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrInvalidResponse, err)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidResponse):
		return "invalid"
	default:
		return "error"
	}
}
