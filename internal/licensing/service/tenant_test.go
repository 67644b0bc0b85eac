package service

import (
	"context"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/stretchr/testify/require"
)

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("opens a seven day trial", func(t *testing.T) {
		e := newTestEnv(t)
		p := domain.Principal{ActorID: "owner-1", Email: "Owner@Example.com", Name: "Rita"}

		tenant, err := e.Tenants.Provision(ctx, p, "")
		require.NoError(t, err)
		require.Equal(t, "owner-1", tenant.ID)
		require.Equal(t, "owner@example.com", tenant.Email)
		require.Equal(t, domain.SubscriptionTrial, tenant.SubscriptionStatus)
		require.Equal(t, DefaultFeatures, tenant.Features)
		require.Equal(t, domain.Limits{Smartphone: 1, Desktop: 0}, tenant.Limits)
		require.True(t, tenant.TrialEndsAt.Equal(testNow.Add(7*24*time.Hour)))

		stored, err := e.Tenants.Get(ctx, domain.Principal{ActorID: "owner-1", TenantID: "owner-1"})
		require.NoError(t, err)
		owner, ok := stored.Member("owner-1")
		require.True(t, ok)
		require.Equal(t, domain.RoleOwner, owner.Role)
		require.Equal(t, "Rita", owner.Nickname)

		acc, err := e.Store.Accounts().GetAccount(ctx, "owner-1")
		require.NoError(t, err)
		require.Equal(t, "owner-1", acc.TenantID)

		require.Equal(t, domain.Capability{TenantID: "owner-1", Role: domain.RoleOwner}, e.Applier.granted["owner-1"])
	})

	t.Run("explicit email wins", func(t *testing.T) {
		e := newTestEnv(t)
		tenant, err := e.Tenants.Provision(ctx, domain.Principal{ActorID: "o"}, " billing@example.com ")
		require.NoError(t, err)
		require.Equal(t, "billing@example.com", tenant.Email)
	})

	t.Run("rejects duplicates and bad input", func(t *testing.T) {
		e := newTestEnv(t)
		e.provision(t, "owner-1")

		_, err := e.Tenants.Provision(ctx, domain.Principal{ActorID: "owner-1", Email: "x@example.com"}, "")
		require.ErrorIs(t, err, ErrAlreadyExists)

		_, err = e.Tenants.Provision(ctx, domain.Principal{ActorID: "owner-2"}, "")
		require.ErrorIs(t, err, ErrInvalidArgument)

		_, err = e.Tenants.Provision(ctx, managerOf("owner-1", "owner-3"), "")
		require.ErrorIs(t, err, ErrInvalidArgument)

		_, err = e.Tenants.Provision(ctx, domain.Principal{}, "x@example.com")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestGetTenant(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.provision(t, "owner-1")

	// The account link resolves tokens without a license claim.
	tenant, err := e.Tenants.Get(ctx, domain.Principal{ActorID: "owner-1"})
	require.NoError(t, err)
	require.Equal(t, "owner-1", tenant.ID)

	_, err = e.Tenants.Get(ctx, domain.Principal{ActorID: "x", TenantID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestExpireTrials(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.provision(t, "owner-1")

	n, err := e.Tenants.ExpireTrials(ctx)
	require.NoError(t, err)
	require.Zero(t, n)

	e.Tenants.Now = func() time.Time { return testNow.Add(8 * 24 * time.Hour) }
	n, err = e.Tenants.ExpireTrials(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	tenant, err := e.Tenants.Get(ctx, domain.Principal{ActorID: "owner-1", TenantID: "owner-1"})
	require.NoError(t, err)
	require.Equal(t, domain.SubscriptionExpired, tenant.SubscriptionStatus)
}
