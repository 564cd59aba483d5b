package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService(nil, "clearhaven", []byte("test-secret"), time.Hour)
	token, err := svc.signToken("user-1")
	require.NoError(t, err)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	other := NewService(nil, "someone-else", []byte("test-secret"), time.Hour)
	token, err := other.signToken("user-1")
	require.NoError(t, err)

	svc := NewService(nil, "clearhaven", []byte("test-secret"), time.Hour)
	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	other := NewService(nil, "clearhaven", []byte("other-secret"), time.Hour)
	token, err := other.signToken("user-1")
	require.NoError(t, err)

	svc := NewService(nil, "clearhaven", []byte("test-secret"), time.Hour)
	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := NewService(nil, "clearhaven", []byte("test-secret"), -time.Minute)
	token, err := svc.signToken("user-1")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc := NewService(nil, "clearhaven", []byte("test-secret"), time.Hour)
	_, err := svc.ParseToken("not-a-jwt")
	assert.Error(t, err)
}
