package service

import (
	"context"
	"testing"

	"struggles/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamService_Flow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1", "alice", "Alice")
	f.seedUser(t, "u2", "bob", "Bob")

	team, err := f.teamSvc.Create(ctx, CreateTeamInput{
		OwnerID:     "u1",
		Name:        "  Night Shift ",
		Description: "Shipping side projects after hours",
	})
	require.NoError(t, err)
	assert.Equal(t, "Night Shift", team.Name)
	require.Len(t, team.Members, 1)
	assert.Equal(t, "u1", team.Members[0])

	joined, err := f.teamSvc.Join(ctx, team.ID, "u2")
	require.NoError(t, err)
	assert.Len(t, joined.Members, 2)

	again, err := f.teamSvc.Join(ctx, team.ID, "u2")
	require.NoError(t, err)
	assert.Len(t, again.Members, 2)

	mine, err := f.teamSvc.ListForUser(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, team.ID, mine[0].ID)

	all, err := f.teamSvc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTeamService_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "u1", "alice", "Alice")

	_, err := f.teamSvc.Create(ctx, CreateTeamInput{Name: "Night Shift", Description: "Shipping side projects"})
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = f.teamSvc.Create(ctx, CreateTeamInput{OwnerID: "u1", Name: "NS", Description: "Shipping side projects"})
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = f.teamSvc.Create(ctx, CreateTeamInput{OwnerID: "u1", Name: "Night Shift", Description: "short"})
	assertCode(t, err, models.CodeInvalidArgument)

	_, err = f.teamSvc.Join(ctx, "missing", "u1")
	assertCode(t, err, models.CodeNotFound)

	_, err = f.teamSvc.Join(ctx, "missing", "")
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = f.teamSvc.GetByID(ctx, "")
	assertCode(t, err, models.CodeInvalidArgument)
}
