package service

import (
	"context"
	"testing"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/stretchr/testify/require"
)

func TestAddMember(t *testing.T) {
	ctx := context.Background()

	valid := AddMemberRequest{Email: "Ana@Example.com", Password: "secret1", Name: "Ana", Role: "Surveyor"}

	t.Run("creates identity, membership and claims", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		m, err := e.Team.AddMember(ctx, owner, valid)
		require.NoError(t, err)
		require.NotEmpty(t, m.ActorID)
		require.Equal(t, domain.Role("surveyor"), m.Role)
		require.Equal(t, "ana@example.com", m.Email)

		tenant, err := e.Tenants.Get(ctx, owner)
		require.NoError(t, err)
		stored, ok := tenant.Member(m.ActorID)
		require.True(t, ok)
		require.Equal(t, "Ana", stored.Nickname)

		acc, err := e.Store.Accounts().GetAccount(ctx, m.ActorID)
		require.NoError(t, err)
		require.Equal(t, "tenant-a", acc.TenantID)
		require.NotEmpty(t, acc.PasswordHash, "account link must keep the local password")

		require.Equal(t, domain.Capability{TenantID: "tenant-a", Role: "surveyor"}, e.Applier.granted[m.ActorID])
	})

	t.Run("rejects duplicate emails", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		_, err := e.Team.AddMember(ctx, owner, valid)
		require.NoError(t, err)

		dup := valid
		dup.Email = " ana@EXAMPLE.com "
		_, err = e.Team.AddMember(ctx, owner, dup)
		require.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("validates input", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		for name, mutate := range map[string]func(*AddMemberRequest){
			"missing email": func(r *AddMemberRequest) { r.Email = "" },
			"missing name":  func(r *AddMemberRequest) { r.Name = " " },
			"missing role":  func(r *AddMemberRequest) { r.Role = "" },
			"short secret":  func(r *AddMemberRequest) { r.Password = "12345" },
			"second owner":  func(r *AddMemberRequest) { r.Role = "owner" },
		} {
			req := valid
			mutate(&req)
			_, err := e.Team.AddMember(ctx, owner, req)
			require.ErrorIs(t, err, ErrInvalidArgument, name)
		}
	})

	t.Run("requires an elevated role", func(t *testing.T) {
		e := newTestEnv(t)
		e.provision(t, "tenant-a")

		member := managerOf("tenant-a", "m")
		member.Role = domain.RoleMember
		_, err := e.Team.AddMember(ctx, member, valid)
		require.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestRemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("removes membership, link and claims", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		m, err := e.Team.AddMember(ctx, owner, AddMemberRequest{
			Email: "ana@example.com", Password: "secret1", Name: "Ana", Role: "member",
		})
		require.NoError(t, err)

		require.NoError(t, e.Team.RemoveMember(ctx, owner, m.ActorID))

		tenant, err := e.Tenants.Get(ctx, owner)
		require.NoError(t, err)
		_, ok := tenant.Member(m.ActorID)
		require.False(t, ok)

		acc, err := e.Store.Accounts().GetAccount(ctx, m.ActorID)
		require.NoError(t, err)
		require.Empty(t, acc.TenantID)

		require.Contains(t, e.Applier.revoked, m.ActorID)
		require.NotContains(t, e.Applier.granted, m.ActorID)
	})

	t.Run("guards", func(t *testing.T) {
		e := newTestEnv(t)
		owner := e.provision(t, "tenant-a")

		require.ErrorIs(t, e.Team.RemoveMember(ctx, owner, "ghost"), ErrNotFound)
		require.ErrorIs(t, e.Team.RemoveMember(ctx, owner, owner.ActorID), ErrInvalidArgument)
		require.ErrorIs(t, e.Team.RemoveMember(ctx, owner, ""), ErrInvalidArgument)
		require.ErrorIs(t, e.Team.RemoveMember(ctx, managerOf("tenant-a", "mgr"), owner.ActorID), ErrPermissionDenied)
	})
}
