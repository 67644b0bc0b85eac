package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/internal/licensing/store/storetest"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

// newFileTestStore opens a migrated database file with the production DSN.
func newFileTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(FileDSN(filepath.Join(t.TempDir(), "licensing.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedTenant(t *testing.T, s *Store, id string) {
	t.Helper()

	now := time.Now().UTC()
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), domain.Tenant{
		ID:                 id,
		Email:              id + "@example.com",
		SubscriptionStatus: domain.SubscriptionTrial,
		Limits:             domain.Limits{Smartphone: 1},
		TrialStartedAt:     now,
		TrialEndsAt:        now.Add(domain.TrialPeriod),
		Members: map[string]domain.Member{
			id: {ActorID: id, Role: domain.RoleOwner, Email: id + "@example.com"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))
}

func pendingOffer(id, code, issuer string, createdAt time.Time) domain.DelegationOffer {
	return domain.DelegationOffer{
		ID:                  id,
		Code:                code,
		IssuerTenantID:      issuer,
		Status:              domain.DelegationPending,
		RedeemerLabel:       domain.AwaitingLinkLabel,
		GrantedProjectIDs:   []string{"p1"},
		GrantedProjectNames: []string{"Plot 1"},
		CreatedAt:           createdAt,
	}
}

func TestTenants(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedTenant(t, s, "t1")

	t.Run("duplicate tenant rejected", func(t *testing.T) {
		err := s.Tenants().CreateTenant(ctx, domain.Tenant{
			ID:                 "t1",
			SubscriptionStatus: domain.SubscriptionTrial,
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		})
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("members round trip", func(t *testing.T) {
		require.NoError(t, s.Tenants().PutMember(ctx, "t1", domain.Member{
			ActorID: "u2", Role: domain.RoleMember, Email: "u2@example.com", Nickname: "Bea",
		}))

		tenant, err := s.Tenants().GetTenant(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, tenant.Members, 2)

		m, ok := tenant.Member("u2")
		require.True(t, ok)
		require.Equal(t, "Bea", m.Nickname)
		require.Equal(t, domain.RoleMember, m.Role)

		require.NoError(t, s.Tenants().RemoveMember(ctx, "t1", "u2"))
		require.ErrorIs(t, s.Tenants().RemoveMember(ctx, "t1", "u2"), store.ErrNotFound)
	})

	t.Run("member of missing tenant", func(t *testing.T) {
		err := s.Tenants().PutMember(ctx, "nope", domain.Member{ActorID: "x", Role: domain.RoleMember})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("missing tenant", func(t *testing.T) {
		_, err := s.Tenants().GetTenant(ctx, "nope")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("expire trials", func(t *testing.T) {
		n, err := s.Tenants().ExpireTrials(ctx, time.Now().Add(domain.TrialPeriod+time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, n)

		tenant, err := s.Tenants().GetTenant(ctx, "t1")
		require.NoError(t, err)
		require.Equal(t, domain.SubscriptionExpired, tenant.SubscriptionStatus)
	})
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedTenant(t, s, "t1")

	now := time.Now().UTC()
	for i, id := range []string{"p1", "p2"} {
		require.NoError(t, s.Projects().CreateProject(ctx, domain.Project{
			ID:        id,
			TenantID:  "t1",
			Name:      "Plot " + id,
			Status:    domain.ProjectActive,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
			UpdatedAt: now,
		}))
	}

	require.NoError(t, s.Projects().SoftDeleteProject(ctx, "t1", "p1", now))
	require.ErrorIs(t, s.Projects().SoftDeleteProject(ctx, "t1", "p9", now), store.ErrNotFound)

	active, err := s.Projects().ListProjects(ctx, "t1", false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "p2", active[0].ID)

	all, err := s.Projects().ListProjects(ctx, "t1", true)
	require.NoError(t, err)
	require.Len(t, all, 2)

	p, err := s.Projects().GetProject(ctx, "t1", "p1")
	require.NoError(t, err)
	require.True(t, p.Deleted())

	_, err = s.Projects().GetProject(ctx, "t2", "p1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDelegations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedTenant(t, s, "issuer")
	seedTenant(t, s, "redeemer")

	base := time.Now().UTC()
	require.NoError(t, s.Delegations().CreateOffer(ctx, pendingOffer("o1", "ABC123", "issuer", base)))

	t.Run("pending code is unique", func(t *testing.T) {
		err := s.Delegations().CreateOffer(ctx, pendingOffer("o2", "ABC123", "issuer", base.Add(time.Second)))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		o, err := s.Delegations().FindPendingByCode(ctx, "ABC123")
		require.NoError(t, err)
		require.Equal(t, "o1", o.ID)
		require.Equal(t, []string{"p1"}, o.GrantedProjectIDs)
		require.Equal(t, []string{"Plot 1"}, o.GrantedProjectNames)
		require.Nil(t, o.RedeemedAt)
	})

	t.Run("unknown code", func(t *testing.T) {
		_, err := s.Delegations().FindPendingByCode(ctx, "ZZZZZZ")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("unknown issuer", func(t *testing.T) {
		err := s.Delegations().CreateOffer(ctx, pendingOffer("o9", "NOBODY", "ghost", base))
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("activate is single use", func(t *testing.T) {
		red := domain.Redemption{RedeemerTenantID: "redeemer", RedeemerLabel: "Bea", RedeemedAt: time.Now()}

		o, err := s.Delegations().ActivateOffer(ctx, "issuer", "o1", red)
		require.NoError(t, err)
		require.Equal(t, domain.DelegationActive, o.Status)
		require.Equal(t, "redeemer", o.RedeemerTenantID)
		require.NotNil(t, o.RedeemedAt)
		require.NoError(t, o.Validate())

		_, err = s.Delegations().ActivateOffer(ctx, "issuer", "o1", red)
		require.ErrorIs(t, err, store.ErrConflict)

		_, err = s.Delegations().ActivateOffer(ctx, "issuer", "missing", red)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("redeemed code can be reissued", func(t *testing.T) {
		require.NoError(t, s.Delegations().CreateOffer(ctx, pendingOffer("o2", "ABC123", "issuer", base.Add(time.Second))))

		o, err := s.Delegations().FindPendingByCode(ctx, "ABC123")
		require.NoError(t, err)
		require.Equal(t, "o2", o.ID)
	})

	t.Run("listings", func(t *testing.T) {
		issued, err := s.Delegations().ListIssued(ctx, "issuer")
		require.NoError(t, err)
		require.Len(t, issued, 2)
		require.Equal(t, "o2", issued[0].ID)

		redeemed, err := s.Delegations().ListRedeemed(ctx, "redeemer")
		require.NoError(t, err)
		require.Len(t, redeemed, 1)
		require.Equal(t, "o1", redeemed[0].ID)
	})

	t.Run("self redemption rejected by schema", func(t *testing.T) {
		red := domain.Redemption{RedeemerTenantID: "issuer", RedeemerLabel: "me", RedeemedAt: time.Now()}
		_, err := s.Delegations().ActivateOffer(ctx, "issuer", "o2", red)
		require.Error(t, err)

		o, err := s.Delegations().GetOffer(ctx, "issuer", "o2")
		require.NoError(t, err)
		require.True(t, o.Pending())
	})
}

func TestAccountsAndClaims(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Accounts().PutAccount(ctx, domain.Account{
		ActorID:      "u1",
		TenantID:     "t1",
		Email:        " Ana@Example.com ",
		PasswordHash: "argon2id$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	a, err := s.Accounts().GetAccountByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", a.ActorID)
	require.Equal(t, "argon2id$hash", a.PasswordHash)

	// An update without a hash keeps the stored one.
	require.NoError(t, s.Accounts().PutAccount(ctx, domain.Account{
		ActorID: "u1", TenantID: "t2", Email: "ana@example.com", CreatedAt: now, UpdatedAt: now,
	}))
	a, err = s.Accounts().GetAccount(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "t2", a.TenantID)
	require.Equal(t, "argon2id$hash", a.PasswordHash)

	_, err = s.Accounts().GetAccount(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Claims().PutClaims(ctx, "u1", domain.Capability{TenantID: "t1", Role: domain.RoleManager}))
	c, err := s.Claims().GetClaims(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, c.Role)

	require.NoError(t, s.Claims().ClearClaims(ctx, "u1"))
	require.NoError(t, s.Claims().ClearClaims(ctx, "u1"))
	_, err = s.Claims().GetClaims(ctx, "u1")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestStoreBehaviour(t *testing.T) {
	storetest.Run(t, newTestStore(t))
}

// A file database is served by a pool of connections, so the races in
// storetest really contend for the write lock here.
func TestStoreBehaviourOnFile(t *testing.T) {
	storetest.Run(t, newFileTestStore(t))
}

func TestFileDSN(t *testing.T) {
	dsn := FileDSN("/data/licensing.db")
	require.True(t, strings.HasPrefix(dsn, "file:/data/licensing.db?"))

	q, err := url.ParseQuery(strings.SplitN(dsn, "?", 2)[1])
	require.NoError(t, err)
	require.ElementsMatch(t,
		[]string{"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"},
		q["_pragma"])
	require.Equal(t, "immediate", q.Get("_txlock"))
}

func TestFileStoreEnforcesForeignKeysOnEveryConnection(t *testing.T) {
	ctx := context.Background()
	s := newFileTestStore(t)

	// More writers than one connection can serve at a time.
	errs := make(chan error, 8)
	for i := range 8 {
		go func() {
			errs <- s.Projects().CreateProject(ctx, domain.Project{
				ID:        fmt.Sprintf("p%d", i),
				TenantID:  "ghost",
				Name:      "Orphan",
				Status:    domain.ProjectActive,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			})
		}()
	}
	for range 8 {
		require.ErrorIs(t, <-errs, store.ErrNotFound)
	}
}
