package mongo

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type accountsRepo struct {
	c *mongo.Collection
}

func (r *accountsRepo) PutAccount(ctx context.Context, a domain.Account) error {
	set := bson.M{
		"tenant_id":    a.TenantID,
		"email":        normalizeEmail(a.Email),
		"display_name": a.DisplayName,
		"updated_at":   a.UpdatedAt.UTC(),
	}
	// An empty hash keeps whatever is stored.
	if a.PasswordHash != "" {
		set["password_hash"] = a.PasswordHash
	}

	_, err := r.c.UpdateOne(ctx,
		bson.M{"_id": a.ActorID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"created_at": a.CreatedAt.UTC()},
		},
		options.Update().SetUpsert(true),
	)
	return mapErr(err)
}

func (r *accountsRepo) GetAccount(ctx context.Context, actorID string) (domain.Account, error) {
	return r.findOne(ctx, bson.M{"_id": actorID})
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (r *accountsRepo) findOne(ctx context.Context, filter bson.M) (domain.Account, error) {
	var d accountDoc
	err := r.c.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	).Decode(&d)
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	return domain.Account{
		ActorID:      d.ActorID,
		TenantID:     d.TenantID,
		Email:        d.Email,
		DisplayName:  d.DisplayName,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

type claimsRepo struct {
	c *mongo.Collection
}

func (r *claimsRepo) PutClaims(ctx context.Context, actorID string, c domain.Capability) error {
	_, err := r.c.ReplaceOne(ctx,
		bson.M{"_id": actorID},
		claimsDoc{ActorID: actorID, TenantID: c.TenantID, Role: string(c.Role), UpdatedAt: time.Now().UTC()},
		options.Replace().SetUpsert(true),
	)
	return mapErr(err)
}

func (r *claimsRepo) ClearClaims(ctx context.Context, actorID string) error {
	_, err := r.c.DeleteOne(ctx, bson.M{"_id": actorID})
	return err
}

func (r *claimsRepo) GetClaims(ctx context.Context, actorID string) (domain.Capability, error) {
	var d claimsDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": actorID}).Decode(&d); err != nil {
		return domain.Capability{}, mapErr(err)
	}
	return domain.Capability{TenantID: d.TenantID, Role: domain.Role(d.Role)}, nil
}

var (
	_ store.Accounts = (*accountsRepo)(nil)
	_ store.Claims   = (*claimsRepo)(nil)
)
