package store

import (
	"context"
	"errors"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional updates whose precondition no
	// longer holds (e.g. an offer that is no longer pending).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Drivers (sqlite, firestore,
// mongo) implement it and expose sub-repositories. Every repository method
// is its own atomic unit; there is no cross-repository transaction because
// the document drivers cannot offer one over arbitrary repositories.
type Store interface {
	Tenants() Tenants
	Projects() Projects
	Delegations() Delegations
	Accounts() Accounts
	Claims() Claims

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}

type Tenants interface {
	// CreateTenant inserts a tenant. ErrAlreadyExists if the id is taken.
	CreateTenant(ctx context.Context, t domain.Tenant) error

	// GetTenant returns a tenant with its member map populated.
	GetTenant(ctx context.Context, id string) (domain.Tenant, error)

	// PutMember inserts or replaces a membership and bumps updated_at.
	PutMember(ctx context.Context, tenantID string, m domain.Member) error

	// RemoveMember deletes a membership. ErrNotFound if it did not exist.
	RemoveMember(ctx context.Context, tenantID, actorID string) error

	// ExpireTrials flips every trial whose window ended before now to expired
	// and returns how many tenants changed.
	ExpireTrials(ctx context.Context, now time.Time) (int, error)
}

type Projects interface {
	CreateProject(ctx context.Context, p domain.Project) error

	// GetProject fetches a project scoped to its owning tenant.
	GetProject(ctx context.Context, tenantID, projectID string) (domain.Project, error)

	// ListProjects returns a tenant's projects, oldest first.
	ListProjects(ctx context.Context, tenantID string, includeDeleted bool) ([]domain.Project, error)

	// SoftDeleteProject marks a project deleted. ErrNotFound if missing.
	SoftDeleteProject(ctx context.Context, tenantID, projectID string, at time.Time) error
}

type Delegations interface {
	// CreateOffer writes a new pending offer under its issuer tenant.
	CreateOffer(ctx context.Context, o domain.DelegationOffer) error

	// GetOffer fetches one offer of an issuer tenant.
	GetOffer(ctx context.Context, issuerTenantID, offerID string) (domain.DelegationOffer, error)

	// FindPendingByCode searches every tenant for a pending offer with code.
	// When several match, the oldest wins.
	FindPendingByCode(ctx context.Context, code string) (domain.DelegationOffer, error)

	// ActivateOffer atomically moves a pending offer to active. It returns
	// ErrConflict when the offer is no longer pending and ErrNotFound when
	// it does not exist.
	ActivateOffer(
		ctx context.Context,
		issuerTenantID, offerID string,
		r domain.Redemption,
	) (domain.DelegationOffer, error)

	// ListIssued returns every offer created by a tenant, newest first.
	ListIssued(ctx context.Context, issuerTenantID string) ([]domain.DelegationOffer, error)

	// ListRedeemed returns the active offers a tenant has redeemed, newest first.
	ListRedeemed(ctx context.Context, redeemerTenantID string) ([]domain.DelegationOffer, error)
}

type Accounts interface {
	// PutAccount inserts or replaces the account of an actor.
	PutAccount(ctx context.Context, a domain.Account) error

	GetAccount(ctx context.Context, actorID string) (domain.Account, error)

	// GetAccountByEmail is used to reject duplicate team members.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)
}

type Claims interface {
	// PutClaims records the capability granted to an actor.
	PutClaims(ctx context.Context, actorID string, c domain.Capability) error

	// ClearClaims removes an actor's capability. Missing claims are not an error.
	ClearClaims(ctx context.Context, actorID string) error

	GetClaims(ctx context.Context, actorID string) (domain.Capability, error)
}
