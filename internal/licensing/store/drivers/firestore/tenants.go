package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type tenantsRepo struct {
	client *firestore.Client
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := tenantRef(r.client, t.ID).Create(ctx, toTenantDoc(t))
	return mapErr(err)
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	snap, err := tenantRef(r.client, id).Get(ctx)
	if err != nil {
		return domain.Tenant{}, mapErr(err)
	}

	var d tenantDoc
	if err := snap.DataTo(&d); err != nil {
		return domain.Tenant{}, err
	}
	return d.toDomain(snap.Ref.ID), nil
}

func (r *tenantsRepo) PutMember(ctx context.Context, tenantID string, m domain.Member) error {
	// Update fails with NotFound when the tenant document is missing.
	_, err := tenantRef(r.client, tenantID).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"members", m.ActorID}, Value: toMemberDoc(m)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return mapErr(err)
}

func (r *tenantsRepo) RemoveMember(ctx context.Context, tenantID, actorID string) error {
	ref := tenantRef(r.client, tenantID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return mapErr(err)
		}

		var d tenantDoc
		if err := snap.DataTo(&d); err != nil {
			return err
		}
		if _, ok := d.Members[actorID]; !ok {
			return store.ErrNotFound
		}

		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"members", actorID}, Value: firestore.Delete},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	return mapErr(err)
}

func (r *tenantsRepo) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	it := r.client.Collection(tenantsCollection).
		Where("subscriptionStatus", "==", string(domain.SubscriptionTrial)).
		Where("trialEndsAt", "<", now.UTC()).
		Documents(ctx)
	defer it.Stop()

	expired := 0
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return expired, err
		}

		// The precondition keeps a concurrent upgrade from being overwritten.
		_, err = doc.Ref.Update(ctx, []firestore.Update{
			{Path: "subscriptionStatus", Value: string(domain.SubscriptionExpired)},
			{Path: "updatedAt", Value: now.UTC()},
		}, firestore.LastUpdateTime(doc.UpdateTime))
		if status.Code(err) == codes.FailedPrecondition {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

var _ store.Tenants = (*tenantsRepo)(nil)
