package firebase

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/geoforest/licensing/internal/licensing/service"
)

type userCreator interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
}

// IdentityProvider creates members as Firebase Auth users.
type IdentityProvider struct {
	client userCreator
}

func NewIdentityProvider(client userCreator) *IdentityProvider {
	return &IdentityProvider{client: client}
}

func (p *IdentityProvider) CreateIdentity(ctx context.Context, in service.NewIdentity) (string, error) {
	params := (&auth.UserToCreate{}).
		Email(in.Email).
		Password(in.Password).
		DisplayName(in.DisplayName)

	rec, err := p.client.CreateUser(ctx, params)
	if auth.IsEmailAlreadyExists(err) {
		return "", service.ErrEmailInUse
	}
	if err != nil {
		return "", fmt.Errorf("firebase: create user: %w", err)
	}
	return rec.UID, nil
}

var _ service.IdentityProvider = (*IdentityProvider)(nil)
