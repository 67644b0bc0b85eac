package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/cryptox"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/geoforest/licensing/pkg/slogx"
)

// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

type AccessToken struct {
	Token     string
	ExpiresIn time.Duration
}

// AuthService is the password directory used when no external identity
// provider is configured. Tokens carry the claims written by reconciliation.
type AuthService struct {
	Store      store.Store
	Hasher     *cryptox.PasswordHasher
	Identities *LocalIdentityProvider
	Signer     jwtx.Signer
	Issuer     string
	Audience   []string
	TTL        time.Duration
}

// SignUp creates a bare account. The caller provisions a license next.
func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) < MinPasswordLength {
		return "", invalidArgument("email is required and the password needs at least 6 characters")
	}

	actorID, err := s.Identities.CreateIdentity(ctx, NewIdentity{
		Email:       email,
		Password:    password,
		DisplayName: name,
	})
	if errors.Is(err, ErrEmailInUse) {
		return "", ErrAlreadyExists
	}
	if err != nil {
		slogx.FromContext(ctx).Error("failed to create account", slog.Any("error", err))
		return "", internal("create identity", err)
	}

	slogx.FromContext(ctx).Info("account created", slog.String("actor_id", actorID))
	return actorID, nil
}

// IssueToken exchanges email and password for a signed access token.
func (s *AuthService) IssueToken(ctx context.Context, email, password string) (AccessToken, error) {
	log := slogx.FromContext(ctx)

	acc, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) || (err == nil && acc.PasswordHash == "") {
		log.Warn("token requested for unknown account")
		return AccessToken{}, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to fetch account", slog.Any("error", err))
		return AccessToken{}, internal("get account", err)
	}

	if err := s.Hasher.Verify(password, acc.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Warn("token requested with wrong password", slog.String("actor_id", acc.ActorID))
			return AccessToken{}, ErrInvalidCredentials
		}
		log.Error("failed to verify password", slog.String("actor_id", acc.ActorID), slog.Any("error", err))
		return AccessToken{}, internal("verify password", err)
	}

	// Members that were never granted claims still get a token; it simply
	// carries no license until reconciliation catches up.
	var licenseID, role string
	grant, err := s.Store.Claims().GetClaims(ctx, acc.ActorID)
	switch {
	case err == nil:
		licenseID, role = grant.TenantID, grant.Role.String()
	case !errors.Is(err, store.ErrNotFound):
		log.Error("failed to fetch claims", slog.String("actor_id", acc.ActorID), slog.Any("error", err))
		return AccessToken{}, internal("get claims", err)
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}

	claims := jwtx.NewAccessClaims(acc.ActorID, licenseID, role, acc.Email, ttl, s.Issuer, s.Audience, time.Now().UTC())
	claims.Name = acc.DisplayName

	token, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign access token", slog.Any("error", err))
		return AccessToken{}, internal("sign token", err)
	}

	log.Info("access token issued",
		slog.String("actor_id", acc.ActorID),
		slog.String("license_id", licenseID),
	)
	return AccessToken{Token: token, ExpiresIn: ttl}, nil
}
