package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/geoforest/licensing/internal/licensing/firebase"
	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/cryptox"
	"github.com/geoforest/licensing/pkg/jwtx"
	"google.golang.org/api/option"
)

// authStack is everything that depends on who issues tokens.
type authStack struct {
	verifier   jwtx.Verifier
	claims     service.ClaimsApplier
	identities service.IdentityProvider

	keys   *jwtx.KeySet       // nil in firebase mode
	remote *jwtx.RemoteKeySet // jwks mode only
	signer jwtx.Signer        // local mode only
	local  *service.LocalIdentityProvider
}

// initAuth builds the verifier, claims applier and identity provider for the
// configured auth mode.
//
// Modes:
//   - "local": an Ed25519 key on disk signs tokens, passwords live in the
//     store, claims are read from the store when a token is issued.
//   - "firebase": Firebase verifies ID tokens, stores custom claims and owns
//     member accounts.
//   - "jwks": an external issuer signs tokens; claims are kept in the store
//     for that issuer to read, members get local accounts.
func initAuth(
	ctx context.Context,
	cfg Config,
	db store.Store,
	opts []option.ClientOption,
	logger *slog.Logger,
) (*authStack, error) {
	verifyOpts := jwtx.VerifyOptions{Issuer: cfg.Issuer, Audience: cfg.Audience}

	switch cfg.AuthMode {
	case AuthFirebase:
		client, err := firebase.NewAuthClient(ctx, cfg.GCPProject, opts...)
		if err != nil {
			return nil, err
		}
		logger.Info("firebase auth enabled", "project", cfg.GCPProject)
		return &authStack{
			verifier:   firebase.NewVerifier(client),
			claims:     firebase.NewClaimsApplier(client),
			identities: firebase.NewIdentityProvider(client),
		}, nil

	case AuthJWKS:
		remote := jwtx.NewRemoteKeySet(cfg.JWKSURL, nil, logger)
		if err := remote.Refresh(ctx); err != nil {
			// Keys are fetched again on the first unknown kid.
			logger.Warn("initial jwks fetch failed", "url", cfg.JWKSURL, "error", err)
		}
		local, err := localIdentities(cfg, db)
		if err != nil {
			return nil, err
		}
		logger.Info("external jwks auth enabled", "url", cfg.JWKSURL, "issuer", cfg.Issuer)
		return &authStack{
			verifier:   jwtx.NewKeySetVerifier(remote.Keys(), verifyOpts).WithRefresher(remote),
			claims:     service.StoreClaimsApplier{Store: db},
			identities: local,
			keys:       remote.Keys(),
			remote:     remote,
		}, nil

	default:
		pemKey, err := cryptox.LoadOrCreateEd25519Key(cfg.SigningKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing key: %w", err)
		}
		signer, err := jwtx.NewSignerEdDSA(cfg.SigningKeyID, pemKey)
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing key: %w", err)
		}
		keys := jwtx.NewKeySet()
		if err := keys.AddSigner(signer); err != nil {
			return nil, err
		}
		local, err := localIdentities(cfg, db)
		if err != nil {
			return nil, err
		}
		logger.Info("local auth enabled", "kid", signer.KID(), "issuer", cfg.Issuer)
		return &authStack{
			verifier:   jwtx.NewKeySetVerifier(keys, verifyOpts),
			claims:     service.StoreClaimsApplier{Store: db},
			identities: local,
			keys:       keys,
			signer:     signer,
			local:      local,
		}, nil
	}
}

func localIdentities(cfg Config, db store.Store) (*service.LocalIdentityProvider, error) {
	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	return &service.LocalIdentityProvider{
		Store:  db,
		Hasher: cryptox.NewPasswordHasher(pepper),
	}, nil
}
