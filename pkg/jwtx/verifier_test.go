package jwtx_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestKeySetVerifierEdDSA(t *testing.T) {
	ctx := context.Background()
	signer := newSigner(t, "k1")

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddSigner(signer))

	v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{
		Issuer:   exampleIssuer,
		Audience: []string{"licensing"},
	})

	token, err := signer.Sign(sampleClaims(time.Now()))
	require.NoError(t, err)

	claims, err := v.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "actor-1", claims.Subject)
	require.Equal(t, "tenant-1", claims.LicenseID)
	require.Equal(t, "manager", claims.Role)
	require.Equal(t, "ana@example.com", claims.Email)

	t.Run("wrong issuer", func(t *testing.T) {
		other := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Issuer: "elsewhere"})
		_, err := other.Verify(ctx, token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Audience: []string{"billing"}})
		_, err := other.Verify(ctx, token)
		require.ErrorIs(t, err, jwtx.ErrAudience)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := signer.Sign(sampleClaims(time.Now().Add(-time.Hour)))
		require.NoError(t, err)
		_, err = v.Verify(ctx, old)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("unknown kid", func(t *testing.T) {
		stranger := newSigner(t, "k2")
		tok, err := stranger.Sign(sampleClaims(time.Now()))
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("same kid different key", func(t *testing.T) {
		impostor := newSigner(t, "k1")
		tok, err := impostor.Sign(sampleClaims(time.Now()))
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := v.Verify(ctx, "not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})

	t.Run("missing subject", func(t *testing.T) {
		c := sampleClaims(time.Now())
		c.Subject = ""
		tok, err := signer.Sign(c)
		require.NoError(t, err)
		_, err = v.Verify(ctx, tok)
		require.ErrorIs(t, err, jwtx.ErrNoSubject)
	})
}

func TestKeySetVerifierRS256AndES256(t *testing.T) {
	ctx := context.Background()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	require.NoError(t, keys.AddJWK(jwtx.NewRSAJWK("rsa", "RS256", &rsaKey.PublicKey)))
	require.NoError(t, keys.AddJWK(jwtx.NewES256JWK("ec", &ecKey.PublicKey)))

	v := jwtx.NewKeySetVerifier(keys, jwtx.VerifyOptions{Issuer: exampleIssuer})

	sign := func(method jwt.SigningMethod, kid string, key any) string {
		tok := jwt.NewWithClaims(method, sampleClaims(time.Now()))
		tok.Header["kid"] = kid
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	_, err = v.Verify(ctx, sign(jwt.SigningMethodRS256, "rsa", rsaKey))
	require.NoError(t, err)

	_, err = v.Verify(ctx, sign(jwt.SigningMethodES256, "ec", ecKey))
	require.NoError(t, err)

	// An RSA key must not verify a token claiming another algorithm.
	_, err = v.Verify(ctx, sign(jwt.SigningMethodES256, "rsa", ecKey))
	require.ErrorIs(t, err, jwtx.ErrAlgMismatch)
}
