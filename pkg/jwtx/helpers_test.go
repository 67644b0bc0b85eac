package jwtx_test

import (
	"testing"
	"time"

	"github.com/geoforest/licensing/pkg/cryptox"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://licensing.test"

func newSigner(t *testing.T, kid string) *jwtx.EdDSASigner {
	t.Helper()

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	s, err := jwtx.NewSignerEdDSA(kid, pemKey)
	require.NoError(t, err)
	return s
}

func sampleClaims(now time.Time) jwtx.Claims {
	return jwtx.NewAccessClaims(
		"actor-1", "tenant-1", "manager", "ana@example.com",
		5*time.Minute, exampleIssuer, []string{"licensing"}, now,
	)
}
