package service

import (
	"context"
	"testing"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/stretchr/testify/require"
)

func TestProjects(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	owner := e.provision(t, "tenant-a")

	p1, err := e.Projects.Register(ctx, owner, "p1", "North plot")
	require.NoError(t, err)
	require.Equal(t, domain.ProjectActive, p1.Status)

	minted, err := e.Projects.Register(ctx, owner, "", "South plot")
	require.NoError(t, err)
	require.NotEmpty(t, minted.ID)

	_, err = e.Projects.Register(ctx, owner, "p1", "Again")
	require.ErrorIs(t, err, ErrAlreadyExists)

	_, err = e.Projects.Register(ctx, owner, "p9", " ")
	require.ErrorIs(t, err, ErrInvalidArgument)

	member := managerOf("tenant-a", "m")
	member.Role = domain.RoleMember
	_, err = e.Projects.Register(ctx, member, "p9", "Plot")
	require.ErrorIs(t, err, ErrPermissionDenied)

	// Members can read.
	list, err := e.Projects.List(ctx, member)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, e.Projects.SoftDelete(ctx, owner, "p1"))
	require.ErrorIs(t, e.Projects.SoftDelete(ctx, owner, "nope"), ErrNotFound)
	require.ErrorIs(t, e.Projects.SoftDelete(ctx, member, minted.ID), ErrPermissionDenied)

	list, err = e.Projects.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, minted.ID, list[0].ID)
}
