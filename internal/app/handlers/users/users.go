// Package users exposes profiles, the chat contact list and the admin user
// views.
package users

import (
	"context"
	"log/slog"
	"time"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/app/uow"
	domainuser "campusconnect/internal/domain/user"
)

const (
	getProfileKey    = "users.profile"
	updateProfileKey = "users.update_profile"
	listContactsKey  = "users.contacts"
	adminListKey     = "admin.users"
	adminGetKey      = "admin.user"

	defaultPageSize = 50
	maxPageSize     = 200
)

type Deps struct {
	UoWFactory uow.UoWFactory
	Clock      policies.Clock
	Logger     *slog.Logger
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) read(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return uow.Within(ctx, d.UoWFactory, uow.TxOptions{ReadOnly: true}, fn)
}

type GetProfileQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

func (q GetProfileQuery) Key() string { return getProfileKey }

type GetProfileHandler struct {
	Deps
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (dto.UserProfile, error) {
	return h.profile(ctx, q.UserID)
}

func (d Deps) profile(ctx context.Context, id string) (dto.UserProfile, error) {
	var out dto.UserProfile
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		u, err := unit.Users().ByID(ctx, domainuser.ID(id))
		if err != nil {
			return err
		}
		out = dto.MapUserProfile(u)
		return nil
	})
	return out, err
}

// UpdateProfileCommand edits the caller's own profile. Nil fields are kept.
type UpdateProfileCommand struct {
	ActorID string  `json:"actor_id" validate:"required"`
	Name    *string `json:"name" validate:"omitempty,max=100"`
	College *string `json:"college" validate:"omitempty,max=200"`
}

func (c UpdateProfileCommand) Key() string { return updateProfileKey }

type UpdateProfileHandler struct {
	Deps
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*dto.UserProfile, error) {
	var out dto.UserProfile
	err := uow.Within(ctx, h.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		u, err := unit.Users().ByID(ctx, domainuser.ID(cmd.ActorID))
		if err != nil {
			return err
		}
		if err := u.UpdateProfile(cmd.Name, cmd.College, h.now()); err != nil {
			return err
		}
		if err := unit.Users().Save(ctx, u); err != nil {
			return err
		}
		out = dto.MapUserProfile(u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.InfoContext(ctx, "profile updated", "user_id", cmd.ActorID)
	}
	return &out, nil
}

// ListContactsQuery lists everyone but the caller, for starting a chat.
type ListContactsQuery struct {
	ActorID string `json:"actor_id" validate:"required"`
	Search  string `json:"search"`
}

func (q ListContactsQuery) Key() string { return listContactsKey }

type ListContactsHandler struct {
	Deps
}

func (h *ListContactsHandler) Handle(ctx context.Context, q ListContactsQuery) (dto.UserList, error) {
	return h.list(ctx, domainuser.ListParams{Query: q.Search, Exclude: domainuser.ID(q.ActorID), Limit: maxPageSize})
}

func (d Deps) list(ctx context.Context, params domainuser.ListParams) (dto.UserList, error) {
	var out dto.UserList
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		items, total, err := unit.Users().List(ctx, params)
		if err != nil {
			return err
		}
		out = dto.MapUserList(items, total)
		return nil
	})
	return out, err
}

type AdminListUsersQuery struct {
	Search string `json:"search"`
	Limit  int    `json:"limit" validate:"gte=0"`
	Offset int    `json:"offset" validate:"gte=0"`
}

func (q AdminListUsersQuery) Key() string { return adminListKey }

func (q AdminListUsersQuery) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type AdminListUsersHandler struct {
	Deps
}

func (h *AdminListUsersHandler) Handle(ctx context.Context, q AdminListUsersQuery) (dto.UserList, error) {
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultPageSize
	case limit > maxPageSize:
		limit = maxPageSize
	}
	return h.list(ctx, domainuser.ListParams{Query: q.Search, Limit: limit, Offset: q.Offset})
}

type AdminGetUserQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

func (q AdminGetUserQuery) Key() string { return adminGetKey }

func (q AdminGetUserQuery) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type AdminGetUserHandler struct {
	Deps
}

func (h *AdminGetUserHandler) Handle(ctx context.Context, q AdminGetUserQuery) (dto.UserProfile, error) {
	return h.profile(ctx, q.UserID)
}

func Register(cmds *commands.Registry, qs *queries.Registry, deps Deps) {
	commands.Register[UpdateProfileCommand, *dto.UserProfile](cmds, updateProfileKey, &UpdateProfileHandler{Deps: deps})

	queries.Register[GetProfileQuery, dto.UserProfile](qs, getProfileKey, &GetProfileHandler{Deps: deps})
	queries.Register[ListContactsQuery, dto.UserList](qs, listContactsKey, &ListContactsHandler{Deps: deps})
	queries.Register[AdminListUsersQuery, dto.UserList](qs, adminListKey, &AdminListUsersHandler{Deps: deps})
	queries.Register[AdminGetUserQuery, dto.UserProfile](qs, adminGetKey, &AdminGetUserHandler{Deps: deps})
}
