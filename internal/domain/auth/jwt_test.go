package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("s3cret"))

	token, expiresAt, err := svc.GenerateAccessToken("alice", "alice@example.com", []string{"clerk"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, []string{"clerk"}, user.Roles)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("s3cret"))
	token, _, err := svc.GenerateAccessToken("alice", "", nil)
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("other"))

	foreignIssuer := NewJWTService(JWTConfig{Secret: "s3cret", Issuer: "elsewhere", AccessTokenTTL: time.Hour})
	foreignToken, _, err := foreignIssuer.GenerateAccessToken("alice", "", nil)
	require.NoError(t, err)

	expired := NewJWTService(DefaultJWTConfig("s3cret"))
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := expired.GenerateAccessToken("alice", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		svc   *JWTService
		token string
	}{
		{"wrong secret", other, token},
		{"wrong issuer", svc, foreignToken},
		{"expired", svc, expiredToken},
		{"garbage", svc, "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.ValidateToken(tt.token)
			assert.Error(t, err)
		})
	}
}

func TestJWTService_EmptySecret(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig(""))
	_, _, err := svc.GenerateAccessToken("alice", "", nil)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
