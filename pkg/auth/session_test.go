package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Session{AccessToken: signToken(t, jwt.MapClaims{
		"sub":  "user-1",
		"role": "authenticated",
		"exp":  exp.Unix(),
	})}

	claims, err := s.Claims()
	require.NoError(t, err)
	assert.Equal(t, "authenticated", claims["role"])

	got, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	assert.False(t, s.Expired(exp.Add(-time.Hour), time.Minute))
	assert.True(t, s.Expired(exp.Add(-time.Minute), time.Minute))
	assert.True(t, s.Expired(exp.Add(time.Second), 0))
}

func TestSessionWithoutExpiry(t *testing.T) {
	s := &Session{AccessToken: signToken(t, jwt.MapClaims{"sub": "user-1"})}

	_, err := s.ExpiresAt()
	assert.ErrorIs(t, err, ErrNoExpiry)
	assert.False(t, s.Expired(time.Now(), time.Hour))
}

func TestSessionInvalidToken(t *testing.T) {
	tests := []struct {
		name    string
		session *Session
		wantErr error
	}{
		{name: "nil session", session: nil, wantErr: ErrNoSession},
		{name: "empty token", session: &Session{}, wantErr: ErrNoSession},
		{name: "not a jwt", session: &Session{AccessToken: "opaque"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.session.Claims()
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, tt.session.Expired(time.Now(), 0))
		})
	}
}

func TestDecodeSession(t *testing.T) {
	s, err := decodeSession([]byte(`{"access_token":"a","user":{"id":"u"}}`))
	require.NoError(t, err)
	assert.Equal(t, "a", s.AccessToken)

	s, err = decodeSession([]byte(`{"id":"u","email":"e"}`))
	require.NoError(t, err)
	assert.Equal(t, "e", s.User["email"])

	s, err = decodeSession([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, s.User)

	_, err = decodeSession([]byte(`[`))
	assert.Error(t, err)
}
