package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrAlreadyRegistered  = errors.New("phone number already registered")
	ErrInvalidToken       = errors.New("token rejected by the auth service")
)

// AuthClient talks to the auth service. Login is not retried.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuthClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type registerRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Username string `json:"username,omitempty"`
}

// Login exchanges credentials for a session.
func (c *AuthClient) Login(ctx context.Context, phone, password string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	s, err := c.postSession(ctx, "/auth/login", loginRequest{Phone: phone, Password: password})
	var se *authStatusError
	if errors.As(err, &se) && se.code == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	return s, err
}

// Register creates an account and signs it in. An empty username lets the
// auth service pick one.
func (c *AuthClient) Register(ctx context.Context, phone, password, username string) (*Session, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	s, err := c.postSession(ctx, "/auth/register", registerRequest{
		Phone:    phone,
		Password: password,
		Username: strings.TrimSpace(username),
	})
	var se *authStatusError
	if errors.As(err, &se) && (se.code == http.StatusBadRequest || se.code == http.StatusConflict) {
		return nil, ErrAlreadyRegistered
	}
	return s, err
}

// Profile returns the account behind token. A token the auth service
// rejects yields ErrInvalidToken.
func (c *AuthClient) Profile(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	var out struct {
		User User `json:"user"`
	}
	err = c.do(req, "auth profile", &out)
	var se *authStatusError
	if errors.As(err, &se) && (se.code == http.StatusUnauthorized || se.code == http.StatusForbidden) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	if out.User.ID == "" {
		return User{}, errors.New("auth profile: response without user")
	}
	return out.User, nil
}

func (c *AuthClient) postSession(ctx context.Context, path string, payload any) (*Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	op := "auth " + strings.TrimPrefix(path, "/auth/")
	var s Session
	if err := c.do(req, op, &s); err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		return nil, fmt.Errorf("%s: response without token", op)
	}
	return &s, nil
}

type authStatusError struct {
	op     string
	code   int
	status string
	body   string
}

func (e *authStatusError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.op, e.status, e.body)
}

func (c *AuthClient) do(req *http.Request, op string, out any) error {
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &authStatusError{op: op, code: res.StatusCode, status: res.Status, body: strings.TrimSpace(string(excerpt))}
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
