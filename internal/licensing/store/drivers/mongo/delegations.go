package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

type delegationsRepo struct {
	c       *mongo.Collection
	tenants *mongo.Collection
}

// CreateOffer inserts an offer for an existing tenant. The pending-code index
// turns a duplicate pending code into ErrAlreadyExists.
func (r *delegationsRepo) CreateOffer(ctx context.Context, o domain.DelegationOffer) error {
	n, err := r.tenants.CountDocuments(ctx, bson.M{"_id": o.IssuerTenantID}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}

	_, err = r.c.InsertOne(ctx, toOfferDoc(o))
	return mapErr(err)
}

func (r *delegationsRepo) GetOffer(ctx context.Context, issuerTenantID, offerID string) (domain.DelegationOffer, error) {
	var d offerDoc
	err := r.c.FindOne(ctx, bson.M{"_id": offerID, "issuer_tenant_id": issuerTenantID}).Decode(&d)
	if err != nil {
		return domain.DelegationOffer{}, mapErr(err)
	}
	return d.toDomain(), nil
}

func (r *delegationsRepo) FindPendingByCode(ctx context.Context, code string) (domain.DelegationOffer, error) {
	var d offerDoc
	err := r.c.FindOne(ctx,
		bson.M{"code": code, "status": string(domain.DelegationPending)},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
	).Decode(&d)
	if err != nil {
		return domain.DelegationOffer{}, mapErr(err)
	}
	return d.toDomain(), nil
}

// ActivateOffer relies on the single-document atomicity of FindOneAndUpdate:
// the status filter lets exactly one caller match a pending offer.
func (r *delegationsRepo) ActivateOffer(
	ctx context.Context,
	issuerTenantID, offerID string,
	red domain.Redemption,
) (domain.DelegationOffer, error) {
	var d offerDoc
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":              offerID,
			"issuer_tenant_id": issuerTenantID,
			"status":           string(domain.DelegationPending),
		},
		bson.M{"$set": bson.M{
			"status":             string(domain.DelegationActive),
			"redeemer_tenant_id": red.RedeemerTenantID,
			"redeemer_label":     red.RedeemerLabel,
			"redeemed_at":        red.RedeemedAt.UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)

	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetOffer(ctx, issuerTenantID, offerID); getErr != nil {
			return domain.DelegationOffer{}, getErr
		}
		return domain.DelegationOffer{}, store.ErrConflict
	}
	if err != nil {
		return domain.DelegationOffer{}, err
	}
	return d.toDomain(), nil
}

func (r *delegationsRepo) ListIssued(ctx context.Context, issuerTenantID string) ([]domain.DelegationOffer, error) {
	return r.list(ctx,
		bson.M{"issuer_tenant_id": issuerTenantID},
		bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	)
}

func (r *delegationsRepo) ListRedeemed(ctx context.Context, redeemerTenantID string) ([]domain.DelegationOffer, error) {
	return r.list(ctx,
		bson.M{"redeemer_tenant_id": redeemerTenantID, "status": string(domain.DelegationActive)},
		bson.D{{Key: "redeemed_at", Value: -1}, {Key: "_id", Value: -1}},
	)
}

func (r *delegationsRepo) list(ctx context.Context, filter bson.M, sort bson.D) ([]domain.DelegationOffer, error) {
	cur, err := r.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.DelegationOffer
	for cur.Next(ctx) {
		var d offerDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toDomain())
	}
	return out, cur.Err()
}

var _ store.Delegations = (*delegationsRepo)(nil)
