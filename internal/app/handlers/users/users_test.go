package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
	domainuser "campusconnect/internal/domain/user"
	"campusconnect/internal/infra/storage/memory"
)

func setup(t *testing.T) (context.Context, *commands.Registry, *queries.Registry) {
	t.Helper()
	ctx := context.Background()
	stores := memory.NewStores()
	for _, name := range []string{"ana", "ben", "cy"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(name), Email: name + "@campus.edu", Name: name})
		require.NoError(t, err)
		require.NoError(t, stores.Users.Save(ctx, u))
	}
	cmds, qs := commands.NewRegistry(), queries.NewRegistry()
	Register(cmds, qs, Deps{UoWFactory: stores.Factory()})
	return ctx, cmds, qs
}

func TestProfileRoundTrip(t *testing.T) {
	ctx, cmds, qs := setup(t)
	name := " Ana Lima "
	updated, err := commands.Dispatch[UpdateProfileCommand, *dto.UserProfile](ctx, cmds, UpdateProfileCommand{ActorID: "ana", Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", updated.Name)

	profile, err := queries.Ask[GetProfileQuery, dto.UserProfile](ctx, qs, GetProfileQuery{UserID: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", profile.Name)
	assert.Equal(t, []string{"student"}, profile.Roles)

	_, err = queries.Ask[GetProfileQuery, dto.UserProfile](ctx, qs, GetProfileQuery{UserID: "ghost"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}

func TestContactsExcludeCaller(t *testing.T) {
	ctx, _, qs := setup(t)
	list, err := queries.Ask[ListContactsQuery, dto.UserList](ctx, qs, ListContactsQuery{ActorID: "ben"})
	require.NoError(t, err)
	assert.Equal(t, 2, list.Total)
	for _, u := range list.Items {
		assert.NotEqual(t, "ben", u.ID)
	}
}

func TestAdminQueriesAreRoleRestricted(t *testing.T) {
	assert.Equal(t, domainuser.RoleAdmin, AdminListUsersQuery{}.RequiredRole())
	assert.Equal(t, domainuser.RoleAdmin, AdminGetUserQuery{}.RequiredRole())

	ctx, _, qs := setup(t)
	list, err := queries.Ask[AdminListUsersQuery, dto.UserList](ctx, qs, AdminListUsersQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, list.Total)
	assert.Len(t, list.Items, 2)
}
