package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/slogx"
)

// ClaimsApplier publishes capability grants to wherever tokens are minted.
type ClaimsApplier interface {
	SetClaims(ctx context.Context, actorID string, c domain.Capability) error
	RevokeClaims(ctx context.Context, actorID string) error
}

// DiffClaims compares a tenant's member map before and after a mutation and
// returns the grants and revocations to apply, ordered by actor id.
// Members without a role are left alone.
func DiffClaims(tenantID string, before, after map[string]domain.Member) []domain.ClaimChange {
	actors := make([]string, 0, len(before)+len(after))
	for id := range before {
		actors = append(actors, id)
	}
	for id := range after {
		if _, seen := before[id]; !seen {
			actors = append(actors, id)
		}
	}
	slices.Sort(actors)

	var changes []domain.ClaimChange
	for _, id := range actors {
		prev, wasMember := before[id]
		next, isMember := after[id]

		switch {
		case isMember:
			if next.Role == "" {
				continue
			}
			if wasMember && prev.Role == next.Role {
				continue
			}
			changes = append(changes, domain.ClaimChange{
				ActorID: id,
				Grant:   &domain.Capability{TenantID: tenantID, Role: next.Role},
			})
		case wasMember:
			changes = append(changes, domain.ClaimChange{ActorID: id})
		}
	}
	return changes
}

// ClaimsReconciler applies the diff of every membership mutation.
type ClaimsReconciler struct {
	Applier ClaimsApplier
}

// Reconcile applies every change, continuing past failures, and returns
// them joined.
func (r *ClaimsReconciler) Reconcile(
	ctx context.Context,
	tenantID string,
	before, after map[string]domain.Member,
) error {
	log := slogx.FromContext(ctx)

	var errs []error
	for _, ch := range DiffClaims(tenantID, before, after) {
		if ch.Revoke() {
			if err := r.Applier.RevokeClaims(ctx, ch.ActorID); err != nil {
				errs = append(errs, fmt.Errorf("revoke %s: %w", ch.ActorID, err))
				continue
			}
			log.Info("claims revoked", slog.String("actor_id", ch.ActorID))
			continue
		}

		if err := r.Applier.SetClaims(ctx, ch.ActorID, *ch.Grant); err != nil {
			errs = append(errs, fmt.Errorf("grant %s: %w", ch.ActorID, err))
			continue
		}
		log.Info("claims updated",
			slog.String("actor_id", ch.ActorID),
			slog.String("tenant_id", ch.Grant.TenantID),
			slog.String("role", ch.Grant.Role.String()),
		)
	}
	return errors.Join(errs...)
}

// StoreClaimsApplier keeps grants in the store, where the local token
// endpoint reads them.
type StoreClaimsApplier struct {
	Store store.Store
}

func (a StoreClaimsApplier) SetClaims(ctx context.Context, actorID string, c domain.Capability) error {
	return a.Store.Claims().PutClaims(ctx, actorID, c)
}

func (a StoreClaimsApplier) RevokeClaims(ctx context.Context, actorID string) error {
	return a.Store.Claims().ClearClaims(ctx, actorID)
}
