package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h := NewPasswordHasher("pepper")

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"unicode password", "contraseña🔒"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m="))

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)

			require.NoError(t, h.Verify(tt.password, hash))
		})
	}
}

func TestHashPasswordUniqueSalts(t *testing.T) {
	h := NewPasswordHasher("pepper")

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	// Same password, different salt.
	require.NotEqual(t, a, b)
}

func TestVerifyPassword(t *testing.T) {
	h := NewPasswordHasher("pepper")
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		require.ErrorIs(t, h.Verify("battery staple", hash), ErrPasswordMismatch)
	})

	t.Run("pepper is part of the hash", func(t *testing.T) {
		other := NewPasswordHasher("another pepper")
		require.ErrorIs(t, other.Verify("correct horse", hash), ErrPasswordMismatch)
	})

	t.Run("malformed hashes", func(t *testing.T) {
		for _, bad := range []string{
			"",
			"plaintext",
			"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
			"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
			"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
			"$argon2id$v=19$m=1,t=1,p=1$c2FsdA$",
		} {
			require.ErrorIs(t, h.Verify("x", bad), ErrMalformedHash, bad)
		}
	})
}
