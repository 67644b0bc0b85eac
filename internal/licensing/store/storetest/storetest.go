// Package storetest holds behaviour checks every store driver must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Run exercises s through the store interfaces. Tenant ids are random so
// drivers backed by a shared server can reuse one instance.
func Run(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("tenant members", func(t *testing.T) { testTenantMembers(t, s) })
	t.Run("pending offer lookup", func(t *testing.T) { testPendingLookup(t, s) })
	t.Run("offer needs its tenant", func(t *testing.T) { testOfferNeedsTenant(t, s) })
	t.Run("activate offer once", func(t *testing.T) { testActivateOnce(t, s) })
	t.Run("concurrent activation", func(t *testing.T) { testConcurrentActivation(t, s) })
	t.Run("concurrent creation with one code", func(t *testing.T) { testConcurrentCreation(t, s) })
	t.Run("accounts", func(t *testing.T) { testAccounts(t, s) })
}

// Tenant creates a tenant owned by a fresh actor and returns its id.
func Tenant(t *testing.T, s store.Store) string {
	t.Helper()

	id := idx.New().String()
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, s.Tenants().CreateTenant(context.Background(), domain.Tenant{
		ID:                 id,
		Email:              id + "@example.com",
		SubscriptionStatus: domain.SubscriptionTrial,
		Limits:             domain.Limits{Smartphone: 1},
		TrialStartedAt:     now,
		TrialEndsAt:        now.Add(domain.TrialPeriod),
		Members: map[string]domain.Member{
			id: {ActorID: id, Role: domain.RoleOwner, Email: id + "@example.com", AddedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}))
	return id
}

func offer(issuer, code string, createdAt time.Time) domain.DelegationOffer {
	return domain.DelegationOffer{
		ID:                  idx.New().String(),
		Code:                code,
		IssuerTenantID:      issuer,
		Status:              domain.DelegationPending,
		RedeemerLabel:       domain.AwaitingLinkLabel,
		GrantedProjectIDs:   []string{"p1"},
		GrantedProjectNames: []string{"North plot"},
		CreatedAt:           createdAt.UTC().Truncate(time.Millisecond),
	}
}

// uniqueCode keeps runs against a shared backend from colliding.
func uniqueCode() string {
	id := idx.New().String()
	return id[len(id)-6:]
}

func testTenantMembers(t *testing.T, s store.Store) {
	ctx := context.Background()
	tenantID := Tenant(t, s)

	require.ErrorIs(t, s.Tenants().CreateTenant(ctx, domain.Tenant{
		ID:                 tenantID,
		SubscriptionStatus: domain.SubscriptionTrial,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}), store.ErrAlreadyExists)

	require.NoError(t, s.Tenants().PutMember(ctx, tenantID, domain.Member{
		ActorID: "member-1", Role: domain.RoleManager, Email: "m1@example.com", Nickname: "Kit",
	}))

	tenant, err := s.Tenants().GetTenant(ctx, tenantID)
	require.NoError(t, err)
	m, ok := tenant.Member("member-1")
	require.True(t, ok)
	require.Equal(t, domain.RoleManager, m.Role)
	require.Equal(t, "Kit", m.Nickname)

	require.NoError(t, s.Tenants().RemoveMember(ctx, tenantID, "member-1"))
	require.ErrorIs(t, s.Tenants().RemoveMember(ctx, tenantID, "member-1"), store.ErrNotFound)

	_, err = s.Tenants().GetTenant(ctx, idx.New().String())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testPendingLookup(t *testing.T, s store.Store) {
	ctx := context.Background()
	issuer := Tenant(t, s)
	other := Tenant(t, s)
	redeemer := Tenant(t, s)
	code := uniqueCode()

	first := offer(issuer, code, time.Now())
	require.NoError(t, s.Delegations().CreateOffer(ctx, first))

	got, err := s.Delegations().FindPendingByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, first.ID, got.ID)
	require.Equal(t, issuer, got.IssuerTenantID)
	require.Equal(t, first.GrantedProjectNames, got.GrantedProjectNames)
	require.Empty(t, got.RedeemerTenantID)

	// A pending code is held across tenants.
	err = s.Delegations().CreateOffer(ctx, offer(other, code, time.Now()))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = s.Delegations().ActivateOffer(ctx, issuer, first.ID, domain.Redemption{
		RedeemerTenantID: redeemer,
		RedeemerLabel:    "Kit",
		RedeemedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)

	// Once redeemed the code is free again.
	reissued := offer(other, code, time.Now())
	require.NoError(t, s.Delegations().CreateOffer(ctx, reissued))
	got, err = s.Delegations().FindPendingByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, reissued.ID, got.ID)
	require.Equal(t, other, got.IssuerTenantID)

	_, err = s.Delegations().FindPendingByCode(ctx, "NOPE00")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testOfferNeedsTenant(t *testing.T, s store.Store) {
	err := s.Delegations().CreateOffer(context.Background(), offer(idx.New().String(), uniqueCode(), time.Now()))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testActivateOnce(t *testing.T, s store.Store) {
	ctx := context.Background()
	issuer := Tenant(t, s)
	redeemer := Tenant(t, s)

	o := offer(issuer, uniqueCode(), time.Now())
	require.NoError(t, s.Delegations().CreateOffer(ctx, o))

	red := domain.Redemption{
		RedeemerTenantID: redeemer,
		RedeemerLabel:    "Kit",
		RedeemedAt:       time.Now().UTC(),
	}
	got, err := s.Delegations().ActivateOffer(ctx, issuer, o.ID, red)
	require.NoError(t, err)
	require.Equal(t, domain.DelegationActive, got.Status)
	require.Equal(t, redeemer, got.RedeemerTenantID)
	require.NoError(t, got.Validate())

	_, err = s.Delegations().ActivateOffer(ctx, issuer, o.ID, red)
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.Delegations().ActivateOffer(ctx, issuer, "missing", red)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Delegations().FindPendingByCode(ctx, o.Code)
	require.ErrorIs(t, err, store.ErrNotFound)

	redeemed, err := s.Delegations().ListRedeemed(ctx, redeemer)
	require.NoError(t, err)
	require.Len(t, redeemed, 1)
	require.Equal(t, o.ID, redeemed[0].ID)

	issued, err := s.Delegations().ListIssued(ctx, issuer)
	require.NoError(t, err)
	require.Len(t, issued, 1)
}

// race starts n calls of fn together and returns their errors.
func race(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

// oneWinner requires exactly one nil error and loser on every other.
func oneWinner(t *testing.T, errs []error, loser error) int {
	t.Helper()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "more than one call succeeded")
			winner = i
			continue
		}
		require.ErrorIs(t, err, loser)
	}
	require.NotEqual(t, -1, winner, "no call succeeded")
	return winner
}

func testConcurrentActivation(t *testing.T, s store.Store) {
	ctx := context.Background()
	issuer := Tenant(t, s)

	o := offer(issuer, uniqueCode(), time.Now())
	require.NoError(t, s.Delegations().CreateOffer(ctx, o))

	const racers = 8
	redeemers := make([]string, racers)
	for i := range redeemers {
		redeemers[i] = Tenant(t, s)
	}

	errs := race(racers, func(i int) error {
		_, err := s.Delegations().ActivateOffer(ctx, issuer, o.ID, domain.Redemption{
			RedeemerTenantID: redeemers[i],
			RedeemerLabel:    "racer",
			RedeemedAt:       time.Now().UTC(),
		})
		return err
	})
	winner := oneWinner(t, errs, store.ErrConflict)

	got, err := s.Delegations().GetOffer(ctx, issuer, o.ID)
	require.NoError(t, err)
	require.Equal(t, redeemers[winner], got.RedeemerTenantID)
}

func testConcurrentCreation(t *testing.T, s store.Store) {
	ctx := context.Background()
	code := uniqueCode()

	const racers = 8
	offers := make([]domain.DelegationOffer, racers)
	for i := range offers {
		offers[i] = offer(Tenant(t, s), code, time.Now())
	}

	errs := race(racers, func(i int) error {
		return s.Delegations().CreateOffer(ctx, offers[i])
	})
	winner := oneWinner(t, errs, store.ErrAlreadyExists)

	got, err := s.Delegations().FindPendingByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, offers[winner].ID, got.ID)
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	actor := idx.New().String()
	email := actor + "@Example.com"
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.Accounts().PutAccount(ctx, domain.Account{
		ActorID: actor, TenantID: "t1", Email: email, PasswordHash: "h1", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.Accounts().PutAccount(ctx, domain.Account{
		ActorID: actor, TenantID: "t2", Email: email, CreatedAt: now, UpdatedAt: now,
	}))

	a, err := s.Accounts().GetAccountByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, actor, a.ActorID)
	require.Equal(t, "t2", a.TenantID)
	require.Equal(t, "h1", a.PasswordHash)

	require.NoError(t, s.Claims().PutClaims(ctx, actor, domain.Capability{TenantID: "t2", Role: domain.RoleMember}))
	c, err := s.Claims().GetClaims(ctx, actor)
	require.NoError(t, err)
	require.Equal(t, "t2", c.TenantID)

	require.NoError(t, s.Claims().ClearClaims(ctx, actor))
	_, err = s.Claims().GetClaims(ctx, actor)
	require.ErrorIs(t, err, store.ErrNotFound)
}
