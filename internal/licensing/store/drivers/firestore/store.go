// Package firestore stores licensing data in Cloud Firestore.
//
// Layout:
//
//	tenants/{tenantID}                     tenant document, members embedded as a map
//	tenants/{tenantID}/projects/{id}       projects
//	tenants/{tenantID}/delegations/{id}    delegation offers (queried as a collection group)
//	delegationCodes/{code}                 reservation held while an offer with that code is pending
//	accounts/{actorID}                     actor -> home tenant link
//	claims/{actorID}                       capability grants
package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/geoforest/licensing/internal/licensing/store"
)

const (
	tenantsCollection     = "tenants"
	projectsCollection    = "projects"
	delegationsCollection = "delegations"
	codesCollection       = "delegationCodes"
	accountsCollection    = "accounts"
	claimsCollection      = "claims"
)

type Store struct {
	client *firestore.Client
}

// NewStore opens a Firestore client for projectID. When FIRESTORE_EMULATOR_HOST
// is set the client library talks to the emulator instead.
func NewStore(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error { return s.client.Close() }

// Ping reads a document that never exists; any answer from the backend,
// including NotFound, means it is reachable.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(tenantsCollection).Doc("_ping").Get(ctx)
	if err == nil || status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func (s *Store) Tenants() store.Tenants         { return &tenantsRepo{client: s.client} }
func (s *Store) Projects() store.Projects       { return &projectsRepo{client: s.client} }
func (s *Store) Delegations() store.Delegations { return &delegationsRepo{client: s.client} }
func (s *Store) Accounts() store.Accounts       { return &accountsRepo{client: s.client} }
func (s *Store) Claims() store.Claims           { return &claimsRepo{client: s.client} }

func tenantRef(c *firestore.Client, tenantID string) *firestore.DocumentRef {
	return c.Collection(tenantsCollection).Doc(tenantID)
}

// mapErr turns gRPC status codes into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return store.ErrNotFound
	case codes.AlreadyExists:
		return store.ErrAlreadyExists
	}
	return err
}

var _ store.Store = (*Store)(nil)
