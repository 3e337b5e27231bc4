package memory

import (
	"context"
	"errors"
	"sync"

	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	UsersRepo         domainuser.Repository
	ListingsRepo      listings.ListingRepository
	ConversationsRepo conversations.Repository
	MessagesRepo      conversations.MessageRepository
	ComplaintsRepo    complaints.Repository
}

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Stores bundles a fresh set of repositories for tests and the memory mode.
type Stores struct {
	Users         *UserRepository
	Listings      *ListingRepository
	Conversations *ConversationRepository
	Messages      *MessageRepository
	Complaints    *ComplaintRepository
}

func NewStores() *Stores {
	return &Stores{
		Users:         NewUserRepository(),
		Listings:      NewListingRepository(),
		Conversations: NewConversationRepository(),
		Messages:      NewMessageRepository(),
		Complaints:    NewComplaintRepository(),
	}
}

func (s *Stores) Factory() Factory {
	return Factory{
		UsersRepo:         s.Users,
		ListingsRepo:      s.Listings,
		ConversationsRepo: s.Conversations,
		MessagesRepo:      s.Messages,
		ComplaintsRepo:    s.Complaints,
	}
}

// Begin starts a unit without isolation. Each repository call is atomic on
// its own and versioned saves catch lost updates. Writes are journaled so
// Rollback undoes them.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UsersRepo == nil || f.ListingsRepo == nil || f.ConversationsRepo == nil || f.MessagesRepo == nil || f.ComplaintsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{
		users:         f.UsersRepo,
		listings:      f.ListingsRepo,
		conversations: f.ConversationsRepo,
		messages:      f.MessagesRepo,
		complaints:    f.ComplaintsRepo,
	}
	if opts.ReadOnly {
		return u, nil
	}
	if undo, ok := f.UsersRepo.(userReverter); ok {
		u.users = journaledUsers{Repository: f.UsersRepo, undo: undo, record: u.record}
	}
	if undo, ok := f.ListingsRepo.(listingReverter); ok {
		u.listings = journaledListings{ListingRepository: f.ListingsRepo, undo: undo, record: u.record}
	}
	if undo, ok := f.ConversationsRepo.(conversationReverter); ok {
		u.conversations = journaledConversations{Repository: f.ConversationsRepo, undo: undo, record: u.record}
	}
	if undo, ok := f.MessagesRepo.(messageReverter); ok {
		u.messages = journaledMessages{MessageRepository: f.MessagesRepo, undo: undo, record: u.record}
	}
	if undo, ok := f.ComplaintsRepo.(complaintReverter); ok {
		u.complaints = journaledComplaints{Repository: f.ComplaintsRepo, undo: undo, record: u.record}
	}
	return u, nil
}

type Unit struct {
	users         domainuser.Repository
	listings      listings.ListingRepository
	conversations conversations.Repository
	messages      conversations.MessageRepository
	complaints    complaints.Repository

	mu   sync.Mutex
	undo []func()
}

func (u *Unit) Users() domainuser.Repository              { return u.users }
func (u *Unit) Listings() listings.ListingRepository      { return u.listings }
func (u *Unit) Conversations() conversations.Repository   { return u.conversations }
func (u *Unit) Messages() conversations.MessageRepository { return u.messages }
func (u *Unit) Complaints() complaints.Repository         { return u.complaints }

func (u *Unit) record(step func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = append(u.undo, step)
}

func (u *Unit) Commit(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.undo = nil
	return nil
}

// Rollback undoes the unit's writes, newest first.
func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	steps := u.undo
	u.undo = nil
	u.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
	return nil
}

var _ uow.UoWFactory = Factory{}
