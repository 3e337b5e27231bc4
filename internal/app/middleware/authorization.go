package middleware

import (
	"context"

	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/user"
)

var ErrAdminRequired = errs.New(errs.ErrForbidden, "admin role required")

// Actor is the authenticated caller as seen by the application layer.
type Actor struct {
	ID    user.ID
	Name  string
	Roles []user.Role
}

func (a Actor) HasRole(role user.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.ID != ""
}

// RoleRestricted is implemented by messages only some roles may send.
type RoleRestricted interface {
	RequiredRole() user.Role
}

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleAuthorizer checks RoleRestricted messages against the context actor.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	role := restricted.RequiredRole()
	if role == "" {
		return nil
	}
	actor, ok := ActorFromContext(ctx)
	if !ok || !actor.HasRole(role) {
		if role == user.RoleAdmin {
			return ErrAdminRequired
		}
		return errs.New(errs.ErrForbidden, "role "+string(role)+" required")
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardCommand(a.Authorize)
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return guardQuery(a.Authorize)
}
