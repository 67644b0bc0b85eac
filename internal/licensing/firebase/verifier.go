package firebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Verifier checks Firebase ID tokens and exposes them as jwtx.Claims.
type Verifier struct {
	client idTokenVerifier
}

func NewVerifier(client *auth.Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, raw string) (jwtx.Claims, error) {
	token, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("firebase: verify id token: %w", err)
	}
	return claimsFromToken(token)
}

func claimsFromToken(t *auth.Token) (jwtx.Claims, error) {
	uid := strings.TrimSpace(t.UID)
	if uid == "" {
		return jwtx.Claims{}, errors.New("firebase: token has no uid")
	}

	c := jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.Issuer,
			Subject:   uid,
			Audience:  jwt.ClaimStrings{t.Audience},
			IssuedAt:  jwt.NewNumericDate(time.Unix(t.IssuedAt, 0)),
			ExpiresAt: jwt.NewNumericDate(time.Unix(t.Expires, 0)),
		},
		LicenseID: stringClaim(t.Claims, ClaimLicenseID),
		Role:      stringClaim(t.Claims, ClaimRole),
		Email:     stringClaim(t.Claims, "email"),
		Name:      stringClaim(t.Claims, "name"),
	}
	return c, nil
}

func stringClaim(claims map[string]any, key string) string {
	if s, ok := claims[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

var _ jwtx.Verifier = (*Verifier)(nil)
