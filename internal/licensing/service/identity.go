package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/cryptox"
	"github.com/geoforest/licensing/pkg/idx"
)

// ErrEmailInUse is returned by identity providers for duplicate sign-ups.
var ErrEmailInUse = errors.New("email already in use")

type NewIdentity struct {
	Email       string
	Password    string
	DisplayName string
}

// IdentityProvider creates sign-in identities in the user directory and
// returns the new actor id.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, in NewIdentity) (string, error)
}

// LocalIdentityProvider keeps identities as password-bearing accounts in the
// licensing store.
type LocalIdentityProvider struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
}

func (p *LocalIdentityProvider) CreateIdentity(ctx context.Context, in NewIdentity) (string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	_, err := p.Store.Accounts().GetAccountByEmail(ctx, email)
	if err == nil {
		return "", ErrEmailInUse
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	hash, err := p.Hasher.Hash(in.Password)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	acc := domain.Account{
		ActorID:      idx.New().String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(in.DisplayName),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.Store.Accounts().PutAccount(ctx, acc); err != nil {
		return "", err
	}
	return acc.ActorID, nil
}
