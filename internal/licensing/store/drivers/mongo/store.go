// Package mongo stores licensing data in MongoDB.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
)

const (
	tenantsCollection     = "tenants"
	projectsCollection    = "projects"
	delegationsCollection = "delegation_offers"
	accountsCollection    = "accounts"
	claimsCollection      = "actor_claims"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to uri and uses the database named dbName.
func NewStore(ctx context.Context, uri, dbName string) (*Store, error) {
	if dbName == "" {
		return nil, errors.New("mongo: database name is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Tenants() store.Tenants         { return &tenantsRepo{c: s.db.Collection(tenantsCollection)} }
func (s *Store) Projects() store.Projects       { return &projectsRepo{c: s.db.Collection(projectsCollection)} }
func (s *Store) Delegations() store.Delegations {
	return &delegationsRepo{
		c:       s.db.Collection(delegationsCollection),
		tenants: s.db.Collection(tenantsCollection),
	}
}
func (s *Store) Accounts() store.Accounts       { return &accountsRepo{c: s.db.Collection(accountsCollection)} }
func (s *Store) Claims() store.Claims           { return &claimsRepo{c: s.db.Collection(claimsCollection)} }

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// call on every start.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(delegationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_offers_code_status"),
		},
		{
			// A code may be reused once redeemed, never while pending.
			Keys: bson.D{{Key: "code", Value: 1}},
			Options: options.Index().
				SetName("uq_offers_pending_code").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(domain.DelegationPending)}),
		},
		{
			Keys:    bson.D{{Key: "issuer_tenant_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_offers_issuer"),
		},
		{
			Keys:    bson.D{{Key: "redeemer_tenant_id", Value: 1}, {Key: "redeemed_at", Value: -1}},
			Options: options.Index().SetName("idx_offers_redeemer"),
		},
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(projectsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("idx_projects_tenant"),
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetName("idx_accounts_email"),
	})
	if err != nil {
		return err
	}

	_, err = s.db.Collection(tenantsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subscription_status", Value: 1}, {Key: "trial_ends_at", Value: 1}},
		Options: options.Index().SetName("idx_tenants_trial"),
	})
	return err
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrAlreadyExists
	}
	return err
}

var _ store.Store = (*Store)(nil)
