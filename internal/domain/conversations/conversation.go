package conversations

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/shared/events"
	"campusconnect/internal/domain/user"
)

var (
	ErrIDRequired         = errs.New(errs.ErrValidation, "conversations: id is required")
	ErrReceiverRequired   = errs.New(errs.ErrValidation, "conversations: receiver is required")
	ErrSelfConversation   = errs.New(errs.ErrValidation, "conversations: cannot start a conversation with yourself")
	ErrNoListing          = errs.New(errs.ErrValidation, "conversations: no listing in this conversation")
	ErrNoSalePending      = errs.New(errs.ErrValidation, "conversations: no sale request pending")
	ErrNotFound           = errs.New(errs.ErrNotFound, "conversations: conversation not found")
	ErrNotParticipant     = errs.New(errs.ErrForbidden, "conversations: not a participant")
	ErrNotAccepted        = errs.New(errs.ErrForbidden, "conversations: conversation not accepted yet")
	ErrConversationClosed = errs.New(errs.ErrConflict, "conversations: conversation was rejected")
	ErrSaleAlreadyClosed  = errs.New(errs.ErrConflict, "conversations: sale already confirmed")
	ErrSaleNotConfirmed   = errs.New(errs.ErrConflict, "conversations: sale not confirmed")
	ErrAlreadyRated       = errs.New(errs.ErrConflict, "conversations: already rated")
	ErrConcurrentUpdate   = errs.New(errs.ErrConflict, "conversations: concurrent update")
	ErrDuplicate          = errs.New(errs.ErrConflict, "conversations: conversation already exists, retry")
)

type ConversationID string

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusBlocked  Status = "blocked"
	StatusRejected Status = "rejected"
)

// Open reports whether the conversation still counts as a live negotiation.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAccepted
}

type SaleStatus string

const (
	SaleNone                SaleStatus = "none"
	SalePendingConfirmation SaleStatus = "pending_confirmation"
	SaleConfirmed           SaleStatus = "confirmed"
)

type Conversation struct {
	ID              ConversationID
	Participants    []user.ID
	Listing         listings.ListingID
	Status          Status
	InitiatedBy     user.ID
	LastMessageAt   time.Time
	SaleStatus      SaleStatus
	SaleRequestedAt *time.Time
	SaleConfirmedAt *time.Time
	BuyerRated      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// FindByParticipants matches the unordered pair {a, b} and the exact
	// listing; an empty listing only matches conversations without one.
	FindByParticipants(ctx context.Context, a, b user.ID, listing listings.ListingID) (*Conversation, error)
	// ListForUser returns non-rejected conversations, most recent activity first.
	ListForUser(ctx context.Context, participant user.ID) ([]*Conversation, error)
	// OpenForListing returns pending or accepted conversations on listing,
	// skipping exclude.
	OpenForListing(ctx context.Context, listing listings.ListingID, exclude ConversationID) ([]*Conversation, error)
	ConfirmedSince(ctx context.Context, since time.Time) ([]*Conversation, error)
	// Save inserts or updates with an optimistic version check. Inserting a
	// second conversation for the same pair and listing yields ErrDuplicate.
	Save(ctx context.Context, conversation *Conversation) error
	// MarkBuyerRated flips buyerRated only while the sale is confirmed and
	// unrated; any other state yields ErrAlreadyRated or ErrSaleNotConfirmed.
	MarkBuyerRated(ctx context.Context, id ConversationID) error
}

type CreateParams struct {
	ID        ConversationID
	Initiator user.ID
	Receiver  user.ID
	Listing   listings.ListingID
	Now       time.Time
}

func NewConversation(params CreateParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Receiver)) == "" {
		return nil, ErrReceiverRequired
	}
	if params.Receiver == params.Initiator {
		return nil, ErrSelfConversation
	}
	now := utc(params.Now)
	c := &Conversation{
		ID:            params.ID,
		Participants:  []user.ID{params.Initiator, params.Receiver},
		Listing:       params.Listing,
		Status:        StatusPending,
		InitiatedBy:   params.Initiator,
		SaleStatus:    SaleNone,
		LastMessageAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	c.Record(ConversationInitiated{
		ConversationID: c.ID,
		Initiator:      params.Initiator,
		Receiver:       params.Receiver,
		Listing:        c.Listing,
		At:             now,
	})
	return c, nil
}

func (c *Conversation) IsParticipant(actor user.ID) bool {
	if actor == "" {
		return false
	}
	for _, p := range c.Participants {
		if p == actor {
			return true
		}
	}
	return false
}

func (c *Conversation) RequireParticipant(actor user.ID) error {
	if !c.IsParticipant(actor) {
		return ErrNotParticipant
	}
	return nil
}

// Counterpart returns the participant that is not actor.
func (c *Conversation) Counterpart(actor user.ID) user.ID {
	for _, p := range c.Participants {
		if p != actor {
			return p
		}
	}
	return ""
}

// PairKey identifies the unordered participant pair plus listing.
func PairKey(a, b user.ID, listing listings.ListingID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b) + "|" + string(listing)
}

func (c *Conversation) PairKey() string {
	if len(c.Participants) != 2 {
		return string(c.ID)
	}
	return PairKey(c.Participants[0], c.Participants[1], c.Listing)
}

func (c *Conversation) HasListing() bool {
	return c.Listing != ""
}

// Accept moves the conversation to accepted. Any participant may accept.
func (c *Conversation) Accept(actor user.ID, now time.Time) error {
	if err := c.RequireParticipant(actor); err != nil {
		return err
	}
	if c.Status == StatusRejected {
		return ErrConversationClosed
	}
	if c.Status == StatusAccepted {
		return nil
	}
	c.Status = StatusAccepted
	c.touch(now)
	c.Record(ConversationAccepted{ConversationID: c.ID, AcceptedBy: actor, At: c.UpdatedAt})
	return nil
}

// EnsureCanMessage gates free-form messaging on acceptance.
func (c *Conversation) EnsureCanMessage(actor user.ID) error {
	if err := c.RequireParticipant(actor); err != nil {
		return err
	}
	if c.Status != StatusAccepted {
		return ErrNotAccepted
	}
	return nil
}

// Post attaches msg to the conversation and bumps lastMessageAt.
func (c *Conversation) Post(msg *Message) {
	msg.ConversationID = c.ID
	c.LastMessageAt = msg.CreatedAt
	c.touch(msg.CreatedAt)
	c.Record(MessageSent{
		MessageID:      msg.ID,
		ConversationID: c.ID,
		Sender:         msg.Sender,
		Receiver:       msg.Receiver,
		Listing:        msg.Listing,
		Content:        msg.Content,
		At:             msg.CreatedAt,
	})
}

// RequestSale asks the buyer to confirm. Seller checks live with the listing.
func (c *Conversation) RequestSale(seller user.ID, now time.Time) error {
	if !c.HasListing() {
		return ErrNoListing
	}
	if c.Status == StatusRejected {
		return ErrConversationClosed
	}
	if c.SaleStatus == SaleConfirmed {
		return ErrSaleAlreadyClosed
	}
	now = utc(now)
	c.SaleStatus = SalePendingConfirmation
	c.SaleRequestedAt = &now
	c.touch(now)
	c.Record(SaleRequested{
		ConversationID: c.ID,
		Listing:        c.Listing,
		Seller:         seller,
		Buyer:          c.Counterpart(seller),
		At:             now,
	})
	return nil
}

// ConfirmSale records the buyer's confirmation of a pending sale request.
func (c *Conversation) ConfirmSale(buyer, seller user.ID, now time.Time) error {
	if c.SaleStatus != SalePendingConfirmation {
		return ErrNoSalePending
	}
	now = utc(now)
	c.SaleStatus = SaleConfirmed
	c.SaleConfirmedAt = &now
	c.BuyerRated = false
	c.touch(now)
	c.Record(SaleConfirmedEvent{
		ConversationID: c.ID,
		Listing:        c.Listing,
		Buyer:          buyer,
		Seller:         seller,
		At:             now,
	})
	return nil
}

// Reject closes a competing negotiation once the listing was sold elsewhere.
// It returns the buyer side of the thread, or "" when nothing changed.
func (c *Conversation) Reject(seller user.ID, now time.Time) user.ID {
	if !c.Status.Open() {
		return ""
	}
	buyer := c.Counterpart(seller)
	if buyer == "" {
		return ""
	}
	c.Status = StatusRejected
	c.SaleStatus = SaleNone
	c.touch(now)
	c.Record(ConversationRejected{
		ConversationID: c.ID,
		Listing:        c.Listing,
		Buyer:          buyer,
		Seller:         seller,
		At:             c.UpdatedAt,
	})
	return buyer
}

// EnsureRateable checks the state preconditions for rating the seller.
func (c *Conversation) EnsureRateable() error {
	if c.SaleStatus != SaleConfirmed {
		return ErrSaleNotConfirmed
	}
	if c.BuyerRated {
		return ErrAlreadyRated
	}
	return nil
}

// RecordRating notes a stored rating on the in-memory aggregate.
func (c *Conversation) RecordRating(buyer, seller user.ID, rating int, agg user.RatingAggregate, now time.Time) {
	c.BuyerRated = true
	c.touch(now)
	c.Record(SellerRated{
		ConversationID: c.ID,
		Listing:        c.Listing,
		Buyer:          buyer,
		Seller:         seller,
		Rating:         rating,
		AverageRating:  agg.AverageRating,
		NumReviews:     agg.NumReviews,
		At:             c.UpdatedAt,
	})
}

func (c *Conversation) touch(now time.Time) {
	c.UpdatedAt = utc(now)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC()
}
