package jwtx

import (
	"context"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeyRefresher is implemented by key sets that can fetch keys on demand,
// such as RemoteKeySet.
type KeyRefresher interface {
	Refresh(ctx context.Context) error
}

// KeySetVerifier validates EdDSA, RS256 and ES256 tokens against the public
// keys of a KeySet. Each key only verifies the algorithm matching its type.
type KeySetVerifier struct {
	keys    *KeySet
	opts    VerifyOptions
	refresh KeyRefresher
}

func NewKeySetVerifier(keys *KeySet, opts VerifyOptions) *KeySetVerifier {
	return &KeySetVerifier{keys: keys, opts: opts}
}

// WithRefresher makes the verifier refresh keys once when it meets an
// unknown kid, which is how a rotated signing key is picked up.
func (v *KeySetVerifier) WithRefresher(r KeyRefresher) *KeySetVerifier {
	v.refresh = r
	return v
}

func (v *KeySetVerifier) Verify(ctx context.Context, tokenStr string) (Claims, error) {
	c, err := v.parse(tokenStr)
	if errors.Is(err, ErrUnknownKID) && v.refresh != nil {
		if rerr := v.refresh.Refresh(ctx); rerr != nil {
			return Claims{}, fmt.Errorf("jwtx: refresh keys: %w", rerr)
		}
		c, err = v.parse(tokenStr)
	}
	if err != nil {
		return Claims{}, err
	}

	if err := c.ValidateIssuer(v.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := c.ValidateAudience(v.opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := c.ValidateExpiry(v.opts.Leeway); err != nil {
		return Claims{}, err
	}
	if c.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	return *c, nil
}

func (v *KeySetVerifier) parse(tokenStr string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{
			jwt.SigningMethodEdDSA.Alg(),
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodES256.Alg(),
		}),
		// exp/nbf are checked by ValidateExpiry with the configured leeway.
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKID), errors.Is(err, ErrAlgMismatch):
			return nil, err
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		}
		return nil, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMalformed
	}
	return claims, nil
}

func (v *KeySetVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKID)
	}

	pub, err := v.keys.Get(kid)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownKID, kid)
	}

	switch key := pub.(type) {
	case ed25519.PublicKey:
		if t.Method.Alg() == jwt.SigningMethodEdDSA.Alg() {
			return key, nil
		}
	case *rsa.PublicKey:
		if t.Method.Alg() == jwt.SigningMethodRS256.Alg() {
			return key, nil
		}
	case *ecdsa.PublicKey:
		if t.Method.Alg() == jwt.SigningMethodES256.Alg() {
			return key, nil
		}
	}
	return nil, ErrAlgMismatch
}
