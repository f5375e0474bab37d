package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("shell-yeah")
	require.NoError(t, err)
	require.True(t, CheckPassword(hash, "shell-yeah"))
	require.False(t, CheckPassword(hash, "shell-no"))
}

func TestVault_SealOpen(t *testing.T) {
	v, err := NewVault(strings.Repeat("k", 32))
	require.NoError(t, err)

	type payload struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	sealed, err := v.Seal(payload{AccessToken: "abc", ExpiresAt: 42})
	require.NoError(t, err)
	require.NotContains(t, sealed, "abc")

	var out payload
	require.NoError(t, v.Open(sealed, &out))
	require.Equal(t, payload{AccessToken: "abc", ExpiresAt: 42}, out)
}

func TestVault_OpenTampered(t *testing.T) {
	v, err := NewVault(strings.Repeat("ab", 32))
	require.NoError(t, err)
	other, err := NewVault(strings.Repeat("cd", 32))
	require.NoError(t, err)

	sealed, err := other.Seal(map[string]string{"a": "b"})
	require.NoError(t, err)

	var out map[string]string
	require.ErrorIs(t, v.Open(sealed, &out), ErrSealBroken)
	require.ErrorIs(t, v.Open("%%%", &out), ErrSealBroken)
}

func TestNewVault_BadKey(t *testing.T) {
	_, err := NewVault("short")
	require.Error(t, err)
}
