package service

import (
	"context"
	"errors"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/jwtx"
)

// PrincipalFromClaims turns verified token claims into a service principal.
func PrincipalFromClaims(c jwtx.Claims) domain.Principal {
	return domain.Principal{
		ActorID:  c.Subject,
		TenantID: c.LicenseID,
		Role:     domain.ParseRole(c.Role),
		Email:    c.Email,
		Name:     c.Name,
	}
}

// requireElevated checks the principal acts inside a tenant with a role
// allowed to manage it.
func requireElevated(p domain.Principal, action string) error {
	if !p.Authenticated() || p.TenantID == "" || !p.Role.Elevated() {
		return permissionDenied("only managers can " + action)
	}
	return nil
}

// resolveTenant returns the tenant the principal acts in. Tokens minted
// before claims reconciliation carry no tenant, so the account link is
// consulted next.
func resolveTenant(ctx context.Context, st store.Store, p domain.Principal) (string, error) {
	if !p.Authenticated() {
		return "", ErrUnauthenticated
	}
	if p.TenantID != "" {
		return p.TenantID, nil
	}

	acc, err := st.Accounts().GetAccount(ctx, p.ActorID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "", permissionDenied("license not identified")
	case err != nil:
		return "", internal("get account", err)
	case acc.TenantID == "":
		return "", permissionDenied("license not identified")
	}
	return acc.TenantID, nil
}
