package firebase

import (
	"context"
	"fmt"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/service"
)

type customClaimsSetter interface {
	SetCustomUserClaims(ctx context.Context, uid string, customClaims map[string]any) error
}

// ClaimsApplier publishes capability grants as Firebase custom claims. They
// show up in the actor's next ID token.
type ClaimsApplier struct {
	client customClaimsSetter
}

func NewClaimsApplier(client customClaimsSetter) *ClaimsApplier {
	return &ClaimsApplier{client: client}
}

func (a *ClaimsApplier) SetClaims(ctx context.Context, actorID string, c domain.Capability) error {
	err := a.client.SetCustomUserClaims(ctx, actorID, map[string]any{
		ClaimLicenseID: c.TenantID,
		ClaimRole:      c.Role.String(),
	})
	if err != nil {
		return fmt.Errorf("firebase: set claims: %w", err)
	}
	return nil
}

// RevokeClaims nulls both claims rather than dropping the whole claim set.
func (a *ClaimsApplier) RevokeClaims(ctx context.Context, actorID string) error {
	err := a.client.SetCustomUserClaims(ctx, actorID, map[string]any{
		ClaimLicenseID: nil,
		ClaimRole:      nil,
	})
	if err != nil {
		return fmt.Errorf("firebase: revoke claims: %w", err)
	}
	return nil
}

var _ service.ClaimsApplier = (*ClaimsApplier)(nil)
