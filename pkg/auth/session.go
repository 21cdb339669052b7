package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoExpiry = errors.New("auth: access token has no exp claim")

// Session is what the token and signup endpoints return.
type Session struct {
	AccessToken  string         `json:"access_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int            `json:"expires_in"`
	RefreshToken string         `json:"refresh_token"`
	User         map[string]any `json:"user"`
}

// decodeSession accepts both a session and, as sent by signup when
// confirmation is pending, a bare user object.
func decodeSession(raw []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("auth: decode session: %w", err)
	}
	if s.AccessToken == "" && s.User == nil {
		var user map[string]any
		if err := json.Unmarshal(raw, &user); err == nil && user["id"] != nil {
			s.User = user
		}
	}
	return &s, nil
}

// Claims decodes the access token's claims. The signature is not verified.
func (s *Session) Claims() (jwt.MapClaims, error) {
	if s == nil || s.AccessToken == "" {
		return nil, ErrNoSession
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return nil, fmt.Errorf("auth: parse access token: %w", err)
	}
	return claims, nil
}

// Subject returns the sub claim, the user id.
func (s *Session) Subject() (string, error) {
	claims, err := s.Claims()
	if err != nil {
		return "", err
	}
	return claims.GetSubject()
}

// ExpiresAt returns the exp claim of the access token.
func (s *Session) ExpiresAt() (time.Time, error) {
	claims, err := s.Claims()
	if err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("auth: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

// Expired reports whether the access token expires within leeway of now.
// Tokens without exp never expire; missing or unreadable tokens always have.
func (s *Session) Expired(now time.Time, leeway time.Duration) bool {
	exp, err := s.ExpiresAt()
	switch {
	case errors.Is(err, ErrNoExpiry):
		return false
	case err != nil:
		return true
	}
	return !now.Add(leeway).Before(exp)
}
