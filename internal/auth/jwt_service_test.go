package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateToken(42, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_ValidateToken_Rejects(t *testing.T) {
	svc := NewJWTService("test-secret")

	fallback, err := svc.GenerateToken(1, -time.Minute)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	stale := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(past)},
	})
	staleToken, err := stale.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	otherKey, err := NewJWTService("other").GenerateToken(1, time.Minute)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "expired", token: staleToken},
		{name: "wrong key", token: otherKey},
		{name: "no user id", token: noUser},
		{name: "garbage", token: "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}

	// a non-positive TTL falls back to the default lifetime
	claims, err := svc.ValidateToken(fallback)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
}
