package service

import (
	"context"
	"regexp"
	"sync"
	"testing"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/stretchr/testify/require"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

func onlyOffer(t *testing.T, e *testEnv, issuer string) domain.DelegationOffer {
	t.Helper()

	offers, err := e.Store.Delegations().ListIssued(context.Background(), issuer)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	return offers[0]
}

func TestCreateDelegation(t *testing.T) {
	ctx := context.Background()

	t.Run("returns six characters from A-Z0-9", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		seen := map[string]bool{}
		for range 20 {
			code, err := e.Delegations.Create(ctx, owner, "p1", "North plot")
			require.NoError(t, err)
			require.Regexp(t, codePattern, code)
			seen[code] = true
		}
		require.Greater(t, len(seen), 1, "codes should be independent draws")
	})

	t.Run("stores a pending offer under the issuer", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		code, err := e.Delegations.Create(ctx, owner, "P42", "Forest Plot 7")
		require.NoError(t, err)

		o := onlyOffer(t, e, "tenant-a")
		require.Equal(t, code, o.Code)
		require.Equal(t, domain.DelegationPending, o.Status)
		require.Equal(t, domain.AwaitingLinkLabel, o.RedeemerLabel)
		require.Empty(t, o.RedeemerTenantID)
		require.Nil(t, o.RedeemedAt)
		require.Equal(t, []string{"P42"}, o.GrantedProjectIDs)
		require.Equal(t, []string{"Forest Plot 7"}, o.GrantedProjectNames)
		require.True(t, o.CreatedAt.Equal(testNow))
	})

	t.Run("requires an elevated role inside a tenant", func(t *testing.T) {
		e := newTestEnv(t)
		e.provision(t, "tenant-a")

		member := managerOf("tenant-a", "someone")
		member.Role = domain.RoleMember
		_, err := e.Delegations.Create(ctx, member, "p1", "North plot")
		require.ErrorIs(t, err, ErrPermissionDenied)

		_, err = e.Delegations.Create(ctx, domain.Principal{ActorID: "x", Role: domain.RoleManager}, "p1", "North plot")
		require.ErrorIs(t, err, ErrPermissionDenied)

		_, err = e.Delegations.Create(ctx, domain.Principal{}, "p1", "North plot")
		require.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("validates the project", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		_, err := e.Delegations.Create(ctx, owner, "  ", "North plot")
		require.ErrorIs(t, err, ErrInvalidArgument)

		_, err = e.Delegations.Create(ctx, owner, "unknown", "")
		require.ErrorIs(t, err, ErrInvalidArgument)

		p, err := e.Projects.Register(ctx, owner, "", "Registered plot")
		require.NoError(t, err)
		_, err = e.Delegations.Create(ctx, owner, p.ID, "")
		require.NoError(t, err)
		require.Equal(t, []string{"Registered plot"}, onlyOffer(t, e, "tenant-a").GrantedProjectNames)

		require.NoError(t, e.Projects.SoftDelete(ctx, owner, p.ID))
		_, err = e.Delegations.Create(ctx, owner, p.ID, "")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("regenerates codes that collide with pending offers", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		keys := &stubKeys{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}
		e.Delegations.Keys = keys

		first, err := e.Delegations.Create(ctx, owner, "p1", "North plot")
		require.NoError(t, err)
		require.Equal(t, "AAAAAA", first)

		second, err := e.Delegations.Create(ctx, owner, "p2", "South plot")
		require.NoError(t, err)
		require.Equal(t, "BBBBBB", second)
		require.Equal(t, 3, keys.calls)
	})

	t.Run("concurrent creates never share a pending code", func(t *testing.T) {
		e := newFileTestEnv(t)
		owner := e.provision(t, "tenant-a")

		const racers = 4
		e.Delegations.Keys = &collidingKeys{code: "AAAAAA", repeats: racers}

		codes := make([]string, racers)
		errs := make([]error, racers)
		var wg sync.WaitGroup
		for i := range racers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes[i], errs[i] = e.Delegations.Create(ctx, owner, "p1", "North plot")
			}()
		}
		wg.Wait()

		seen := map[string]bool{}
		for i := range racers {
			require.NoError(t, errs[i])
			require.False(t, seen[codes[i]], "code %s issued twice", codes[i])
			seen[codes[i]] = true
		}
		require.True(t, seen["AAAAAA"])
	})

	t.Run("unknown license", func(t *testing.T) {
		e := newTestEnv(t)

		_, err := e.Delegations.Create(ctx, managerOf("never-provisioned", "m1"), "p1", "North plot")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("gives up after repeated collisions", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		e.Delegations.Keys = &stubKeys{codes: []string{"AAAAAA"}}
		_, err := e.Delegations.Create(ctx, owner, "p1", "North plot")
		require.NoError(t, err)

		_, err = e.Delegations.Create(ctx, owner, "p2", "South plot")
		require.ErrorIs(t, err, ErrInternal)
	})
}

func TestRedeemDelegation(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, code string) (*testEnv, domain.Principal, domain.Principal) {
		t.Helper()

		e := newTestEnv(t)
		a := e.provision(t, "tenant-a")
		b := e.provision(t, "tenant-b")

		e.Delegations.Keys = &stubKeys{codes: []string{code}}
		got, err := e.Delegations.Create(ctx, managerOf(a.TenantID, a.ActorID), "P42", "Forest Plot 7")
		require.NoError(t, err)
		require.Equal(t, code, got)
		return e, a, b
	}

	t.Run("end to end", func(t *testing.T) {
		e, a, b := setup(t, "C0DE42")

		grant, err := e.Delegations.Redeem(ctx, b, "", "C0DE42")
		require.NoError(t, err)
		require.Equal(t, a.TenantID, grant.IssuerTenantID)
		require.Equal(t, []string{"P42"}, grant.GrantedProjectIDs)

		o := onlyOffer(t, e, a.TenantID)
		require.Equal(t, domain.DelegationActive, o.Status)
		require.Equal(t, b.TenantID, o.RedeemerTenantID)
		require.NotNil(t, o.RedeemedAt)
		require.True(t, o.RedeemedAt.Equal(testNow))
		require.NoError(t, o.Validate())

		received, err := e.Projects.Delegated(ctx, b)
		require.NoError(t, err)
		require.Len(t, received, 1)
		require.Equal(t, o.ID, received[0].ID)
	})

	t.Run("normalises case and whitespace", func(t *testing.T) {
		e, a, b := setup(t, "A1B2C3")

		grant, err := e.Delegations.Redeem(ctx, b, "", "  a1b2c3 ")
		require.NoError(t, err)
		require.Equal(t, a.TenantID, grant.IssuerTenantID)
	})

	t.Run("rejects empty codes", func(t *testing.T) {
		e, _, b := setup(t, "A1B2C3")

		_, err := e.Delegations.Redeem(ctx, b, "", " \t ")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("unknown code", func(t *testing.T) {
		e, _, b := setup(t, "A1B2C3")

		_, err := e.Delegations.Redeem(ctx, b, "", "ZZZZZZ")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("self delegation", func(t *testing.T) {
		e, a, _ := setup(t, "A1B2C3")

		_, err := e.Delegations.Redeem(ctx, a, "", "A1B2C3")
		require.ErrorIs(t, err, ErrInvalidArgument)
		require.True(t, onlyOffer(t, e, a.TenantID).Pending())
	})

	t.Run("second redemption fails without mutating", func(t *testing.T) {
		e, a, b := setup(t, "A1B2C3")
		c := e.provision(t, "tenant-c")

		_, err := e.Delegations.Redeem(ctx, b, "", "A1B2C3")
		require.NoError(t, err)
		before := onlyOffer(t, e, a.TenantID)

		for _, p := range []domain.Principal{b, c} {
			_, err = e.Delegations.Redeem(ctx, p, "", "A1B2C3")
			require.ErrorIs(t, err, ErrNotFound)
		}
		require.Equal(t, before, onlyOffer(t, e, a.TenantID))
	})

	t.Run("falls back to the account link for the tenant", func(t *testing.T) {
		e, a, b := setup(t, "A1B2C3")

		tokenless := domain.Principal{ActorID: b.ActorID}
		grant, err := e.Delegations.Redeem(ctx, tokenless, "", "A1B2C3")
		require.NoError(t, err)
		require.Equal(t, a.TenantID, grant.IssuerTenantID)
		require.Equal(t, b.TenantID, onlyOffer(t, e, a.TenantID).RedeemerTenantID)
	})

	t.Run("requires a tenant", func(t *testing.T) {
		e, _, _ := setup(t, "A1B2C3")

		_, err := e.Delegations.Redeem(ctx, domain.Principal{ActorID: "stranger"}, "", "A1B2C3")
		require.ErrorIs(t, err, ErrPermissionDenied)

		_, err = e.Delegations.Redeem(ctx, domain.Principal{}, "", "A1B2C3")
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestConcurrentRedemption(t *testing.T) {
	envs := map[string]func(*testing.T) *testEnv{
		"memory": newTestEnv,
		"file":   newFileTestEnv,
	}

	for name, newEnv := range envs {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := newEnv(t)
			a := e.provision(t, "tenant-a")

			e.Delegations.Keys = &stubKeys{codes: []string{"RACE01"}}
			_, err := e.Delegations.Create(ctx, a, "P42", "Forest Plot 7")
			require.NoError(t, err)

			const racers = 8
			redeemers := make([]domain.Principal, racers)
			for i := range racers {
				redeemers[i] = e.provision(t, "racer-"+string(rune('a'+i)))
			}

			for round := range 3 {
				const code = "RACE01"
				if round > 0 {
					// The redeemed code is free again; issue it anew.
					_, err := e.Delegations.Create(ctx, a, "P42", "Forest Plot 7")
					require.NoError(t, err)
				}

				var (
					wg      sync.WaitGroup
					start   = make(chan struct{})
					results = make([]error, racers)
				)
				for i := range racers {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-start
						_, results[i] = e.Delegations.Redeem(ctx, redeemers[i], "", code)
					}()
				}
				close(start)
				wg.Wait()

				var winner string
				for i, err := range results {
					if err == nil {
						require.Empty(t, winner, "round %d: more than one redemption succeeded", round)
						winner = redeemers[i].TenantID
						continue
					}
					require.ErrorIs(t, err, ErrNotFound, "round %d", round)
				}
				require.NotEmpty(t, winner, "round %d: nobody redeemed", round)

				redeemed, err := e.Store.Delegations().ListRedeemed(ctx, winner)
				require.NoError(t, err)
				require.NotEmpty(t, redeemed)
			}

			issued, err := e.Store.Delegations().ListIssued(ctx, a.TenantID)
			require.NoError(t, err)
			require.Len(t, issued, 3)
			for _, o := range issued {
				require.Equal(t, domain.DelegationActive, o.Status)
				require.NotEmpty(t, o.RedeemerTenantID)
				require.NoError(t, o.Validate())
			}
		})
	}
}

func TestRedeemerLabel(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name     string
		nickname string
		email    string
		fallback string
		want     string
	}{
		{"member nickname wins", "Joana", "joana@example.com", "Device 7", "Joana"},
		{"then principal email", "", "joana@example.com", "Device 7", "joana@example.com"},
		{"then display fallback", "", "", "Device 7", "Device 7"},
		{"then generic label", "", "", "  ", domain.ExternalUserLabel},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t)
			a := e.provision(t, "tenant-a")
			b := e.provision(t, "tenant-b")

			require.NoError(t, e.Store.Tenants().PutMember(ctx, b.TenantID, domain.Member{
				ActorID:  "joana",
				Role:     domain.RoleMember,
				Nickname: tc.nickname,
				AddedAt:  testNow,
			}))

			code, err := e.Delegations.Create(ctx, a, "p1", "North plot")
			require.NoError(t, err)

			redeemer := domain.Principal{ActorID: "joana", TenantID: b.TenantID, Role: domain.RoleMember, Email: tc.email}
			_, err = e.Delegations.Redeem(ctx, redeemer, tc.fallback, code)
			require.NoError(t, err)

			require.Equal(t, tc.want, onlyOffer(t, e, a.TenantID).RedeemerLabel)
		})
	}
}

func TestListIssued(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	a := e.provision(t, "tenant-a")
	b := e.provision(t, "tenant-b")

	_, err := e.Delegations.Create(ctx, a, "p1", "North plot")
	require.NoError(t, err)

	issued, err := e.Delegations.ListIssued(ctx, a)
	require.NoError(t, err)
	require.Len(t, issued, 1)

	issued, err = e.Delegations.ListIssued(ctx, b)
	require.NoError(t, err)
	require.Empty(t, issued)
}
