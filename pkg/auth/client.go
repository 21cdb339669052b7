// Package auth calls the GoTrue-style auth service (/auth/v1) of a
// Supabase-style backend: sign up, sign in, password recovery and user
// administration. Tokens are issued and verified by the backend; this package
// only reads their claims.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/edgeflare/pgrest/pkg/httputil"
)

var (
	ErrInvalidBaseURL = errors.New("auth: base URL must be absolute")
	ErrNoSession      = errors.New("auth: response carries no session")
)

const authPrefix = "/auth/v1"

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *httputil.Client
}

// NewClient returns a Client for the backend at baseURL. Admin calls require
// apiKey to be the service role key. A nil hc means httputil.NewClient().
func NewClient(baseURL, apiKey string, hc *httputil.Client) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	if hc == nil {
		hc = httputil.NewClient()
	}
	return &Client{baseURL: baseURL, apiKey: apiKey, http: hc}, nil
}

// SignUpRequest registers a user. Data ends up in the user's metadata.
type SignUpRequest struct {
	Email    string         `json:"email,omitempty"`
	Phone    string         `json:"phone,omitempty"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// User is a user as returned by the admin endpoints.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at,omitempty"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path, rawQuery, bearer string, body any, out any) error {
	target := c.baseURL + authPrefix + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	h := http.Header{}
	h.Set("apikey", c.apiKey)
	if bearer != "" {
		h.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(ctx, httputil.Request{Method: method, URL: target, Headers: h, Body: body})
	if err != nil {
		return err
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("auth: decode %s response: %w", path, err)
	}
	return nil
}

// SignUp registers a new user. When the backend requires email confirmation
// the returned session has no access token and only User is set.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/signup", "", c.apiKey, req, &raw); err != nil {
		return nil, err
	}
	return decodeSession(raw)
}

// SignIn exchanges an email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/token", "grant_type=password", c.apiKey, body, &raw); err != nil {
		return nil, err
	}
	s, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	return s, nil
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/token", "grant_type=refresh_token", c.apiKey, body, &raw); err != nil {
		return nil, err
	}
	s, err := decodeSession(raw)
	if err != nil {
		return nil, err
	}
	if s.AccessToken == "" {
		return nil, ErrNoSession
	}
	return s, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (map[string]any, error) {
	var user map[string]any
	if err := c.do(ctx, http.MethodGet, "/user", "", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword asks the backend to email a recovery link or code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/recover", "", c.apiKey, map[string]string{"email": email}, nil)
}

// ResetPassword sets a new password for the user owning accessToken. otp is
// the code from the recovery email, if the backend requires one.
func (c *Client) ResetPassword(ctx context.Context, newPassword, accessToken, otp string) error {
	body := map[string]string{"password": newPassword}
	if otp != "" {
		body["code"] = otp
	}
	return c.do(ctx, http.MethodPut, "/user", "", accessToken, body, nil)
}

// ListUsers returns one page of users, starting at page 1. perPage <= 0 uses
// the backend default.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]User, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		q.Set("per_page", strconv.Itoa(perPage))
	}

	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(ctx, http.MethodGet, "/admin/users", q.Encode(), c.apiKey, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		resp.Users = []User{}
	}
	return resp.Users, nil
}

// GetUserByID returns a single user.
func (c *Client) GetUserByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/admin/users/"+url.PathEscape(id), "", c.apiKey, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/admin/users/"+url.PathEscape(id), "", c.apiKey, nil, nil)
}
