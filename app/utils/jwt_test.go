package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTrip(t *testing.T) {
	j := JWT{Key: []byte("secret"), Issuer: "toughturtle"}

	tkn, err := j.GenerateJWTForUser("user-1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tkn.Value)

	userId, err := j.GetUserIdFromToken(tkn.Value, PurposeAPI)
	require.NoError(t, err)
	require.Equal(t, "user-1", userId)
}

func TestJWT_Rejects(t *testing.T) {
	j := JWT{Key: []byte("secret"), Issuer: "toughturtle"}
	link, err := j.GenerateLinkToken("user-1", time.Hour)
	require.NoError(t, err)
	expired, err := j.GenerateJWTForUser("user-1", -time.Minute)
	require.NoError(t, err)
	foreign, err := JWT{Key: []byte("other"), Issuer: "toughturtle"}.GenerateJWTForUser("user-1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		purpose string
	}{
		{name: "wrong purpose", token: link.Value, purpose: PurposeAPI},
		{name: "expired", token: expired.Value, purpose: PurposeAPI},
		{name: "foreign key", token: foreign.Value, purpose: PurposeAPI},
		{name: "garbage", token: "not-a-token", purpose: PurposeAPI},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.GetUserIdFromToken(tt.token, tt.purpose)
			require.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
