package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type tenantsRepo struct {
	c *mongo.Collection
}

func (r *tenantsRepo) CreateTenant(ctx context.Context, t domain.Tenant) error {
	_, err := r.c.InsertOne(ctx, toTenantDoc(t))
	return mapErr(err)
}

func (r *tenantsRepo) GetTenant(ctx context.Context, id string) (domain.Tenant, error) {
	var d tenantDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return domain.Tenant{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *tenantsRepo) PutMember(ctx context.Context, tenantID string, m domain.Member) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": tenantID},
		bson.M{"$set": bson.M{
			"members." + m.ActorID: toMemberDoc(m),
			"updated_at":           time.Now().UTC(),
		}},
	)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tenantsRepo) RemoveMember(ctx context.Context, tenantID, actorID string) error {
	field := "members." + actorID
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": tenantID, field: bson.M{"$exists": true}},
		bson.M{
			"$unset": bson.M{field: ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *tenantsRepo) ExpireTrials(ctx context.Context, now time.Time) (int, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{
			"subscription_status": string(domain.SubscriptionTrial),
			"trial_ends_at":       bson.M{"$lt": now.UTC()},
		},
		bson.M{"$set": bson.M{
			"subscription_status": string(domain.SubscriptionExpired),
			"updated_at":          now.UTC(),
		}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

var _ store.Tenants = (*tenantsRepo)(nil)
