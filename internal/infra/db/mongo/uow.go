package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"

	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	UsersRepo         domainuser.Repository
	ListingsRepo      listings.ListingRepository
	ConversationsRepo conversations.Repository
	MessagesRepo      conversations.MessageRepository
	ComplaintsRepo    complaints.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds a factory with every repository on db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:                db,
		UsersRepo:         NewUserRepository(db),
		ListingsRepo:      NewListingRepository(db),
		ConversationsRepo: NewConversationRepository(db),
		MessagesRepo:      NewMessageRepository(db),
		ComplaintsRepo:    NewComplaintRepository(db),
	}
}

// Begin starts a session. Writable units run inside a transaction; read-only
// units read with majority concern outside one.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession(options.Session().SetDefaultReadConcern(readconcern.Majority()))
	if err != nil {
		return nil, err
	}
	unit := &Unit{factory: f, session: session, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return unit, nil
}

type Unit struct {
	factory  Factory
	session  mongo.Session
	readOnly bool
	done     bool
}

func (u *Unit) Users() domainuser.Repository              { return u.factory.UsersRepo }
func (u *Unit) Listings() listings.ListingRepository      { return u.factory.ListingsRepo }
func (u *Unit) Conversations() conversations.Repository   { return u.factory.ConversationsRepo }
func (u *Unit) Messages() conversations.MessageRepository { return u.factory.MessagesRepo }
func (u *Unit) Complaints() complaints.Repository         { return u.factory.ComplaintsRepo }

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.CommitTransaction(ctx)
}

// Rollback aborts the transaction. It is a no-op once the unit finished.
func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
