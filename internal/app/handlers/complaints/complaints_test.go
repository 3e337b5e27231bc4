package complaints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
	domaincomplaints "campusconnect/internal/domain/complaints"
	domainuser "campusconnect/internal/domain/user"
	"campusconnect/internal/infra/storage/memory"
)

func TestComplaintLifecycle(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	for _, id := range []string{"ana", "troll"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: id + "@campus.edu", Name: id})
		require.NoError(t, err)
		require.NoError(t, stores.Users.Save(ctx, u))
	}
	box := memory.NewOutbox()
	cmds, qs := commands.NewRegistry(), queries.NewRegistry()
	Register(cmds, qs, Deps{UoWFactory: stores.Factory(), Outbox: box})

	_, err := commands.Dispatch[CreateComplaintCommand, *dto.Complaint](ctx, cmds, CreateComplaintCommand{ActorID: "ana", Type: "spam"})
	assert.ErrorIs(t, err, domaincomplaints.ErrDescriptionRequired)
	_, err = commands.Dispatch[CreateComplaintCommand, *dto.Complaint](ctx, cmds, CreateComplaintCommand{ActorID: "ana", ReportedUserID: "ghost", Type: "spam", Description: "x"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)

	filed, err := commands.Dispatch[CreateComplaintCommand, *dto.Complaint](ctx, cmds, CreateComplaintCommand{
		ActorID: "ana", ReportedUserID: "troll", Type: "harassment", Description: "rude messages",
	})
	require.NoError(t, err)
	assert.Equal(t, "open", filed.Status)

	_, err = commands.Dispatch[UpdateStatusCommand, *dto.Complaint](ctx, cmds, UpdateStatusCommand{ActorID: "admin", ComplaintID: filed.ID, Status: "closed"})
	assert.ErrorIs(t, err, domaincomplaints.ErrInvalidStatus)
	_, err = commands.Dispatch[UpdateStatusCommand, *dto.Complaint](ctx, cmds, UpdateStatusCommand{ActorID: "admin", ComplaintID: "missing", Status: "resolved"})
	assert.ErrorIs(t, err, domaincomplaints.ErrNotFound)

	resolved, err := commands.Dispatch[UpdateStatusCommand, *dto.Complaint](ctx, cmds, UpdateStatusCommand{ActorID: "admin", ComplaintID: filed.ID, Status: "Resolved"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved.Status)

	open, err := queries.Ask[ListComplaintsQuery, dto.ComplaintList](ctx, qs, ListComplaintsQuery{Status: "open"})
	require.NoError(t, err)
	assert.Zero(t, open.Total)
	all, err := queries.Ask[ListComplaintsQuery, dto.ComplaintList](ctx, qs, ListComplaintsQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Total)

	var names []string
	for _, rec := range box.Records() {
		names = append(names, rec.Name)
	}
	assert.Equal(t, []string{"complaint.filed", "complaint.status_changed"}, names)
}
