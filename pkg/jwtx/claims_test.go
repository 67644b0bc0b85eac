package jwtx_test

import (
	"testing"
	"time"

	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: exampleIssuer}}

	require.NoError(t, c.ValidateIssuer(exampleIssuer))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("someone-else"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"licensing", "mobile"}}}

	require.NoError(t, c.ValidateAudience([]string{"mobile"}))
	require.NoError(t, c.ValidateAudience([]string{"x", "licensing"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid window", func(t *testing.T) {
		c := sampleClaims(now)
		require.NoError(t, c.ValidateExpiry(0))
	})

	t.Run("expired", func(t *testing.T) {
		c := sampleClaims(now.Add(-time.Hour))
		require.ErrorIs(t, c.ValidateExpiry(0), jwtx.ErrExpired)
	})

	t.Run("expired within leeway", func(t *testing.T) {
		c := sampleClaims(now.Add(-6 * time.Minute))
		require.NoError(t, c.ValidateExpiry(2*time.Minute))
	})

	t.Run("not yet valid", func(t *testing.T) {
		c := sampleClaims(now.Add(time.Hour))
		require.ErrorIs(t, c.ValidateExpiry(time.Second), jwtx.ErrNotYetValid)
	})
}

func TestNewAccessClaims(t *testing.T) {
	c := sampleClaims(time.Now())
	require.Equal(t, "actor-1", c.Subject)
	require.Equal(t, "tenant-1", c.LicenseID)
	require.Equal(t, "manager", c.Role)
	require.NotEmpty(t, c.ID)
	require.NotEqual(t, c.ID, sampleClaims(time.Now()).ID)
}
