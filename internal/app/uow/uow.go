package uow

import (
	"context"
	"errors"

	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/user"
)

var ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")

// UnitOfWork groups repositories that commit or roll back together.
type UnitOfWork interface {
	Users() user.Repository
	Listings() listings.ListingRepository
	Conversations() conversations.Repository
	Messages() conversations.MessageRepository
	Complaints() complaints.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// contextInjector is implemented by units that carry driver state (a Mongo
// session) which repositories read back from the context.
type contextInjector interface {
	InjectContext(ctx context.Context) context.Context
}
