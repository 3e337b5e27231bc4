package conversations

import (
	"time"

	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/user"
)

type ConversationInitiated struct {
	ConversationID ConversationID
	Initiator      user.ID
	Receiver       user.ID
	Listing        listings.ListingID
	At             time.Time
}

func (e ConversationInitiated) EventName() string     { return "conversation.initiated" }
func (e ConversationInitiated) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationInitiated) OccurredAt() time.Time { return e.At }

type ConversationAccepted struct {
	ConversationID ConversationID
	AcceptedBy     user.ID
	At             time.Time
}

func (e ConversationAccepted) EventName() string     { return "conversation.accepted" }
func (e ConversationAccepted) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationAccepted) OccurredAt() time.Time { return e.At }

type ConversationRejected struct {
	ConversationID ConversationID
	Listing        listings.ListingID
	Buyer          user.ID
	Seller         user.ID
	At             time.Time
}

func (e ConversationRejected) EventName() string     { return "conversation.rejected" }
func (e ConversationRejected) AggregateID() string   { return string(e.ConversationID) }
func (e ConversationRejected) OccurredAt() time.Time { return e.At }

type MessageSent struct {
	MessageID      MessageID
	ConversationID ConversationID
	Sender         user.ID
	Receiver       user.ID
	Listing        listings.ListingID
	Content        string
	At             time.Time
}

func (e MessageSent) EventName() string     { return "message.sent" }
func (e MessageSent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSent) OccurredAt() time.Time { return e.At }

type SaleRequested struct {
	ConversationID ConversationID
	Listing        listings.ListingID
	Seller         user.ID
	Buyer          user.ID
	At             time.Time
}

func (e SaleRequested) EventName() string     { return "sale.requested" }
func (e SaleRequested) AggregateID() string   { return string(e.ConversationID) }
func (e SaleRequested) OccurredAt() time.Time { return e.At }

// SaleConfirmedEvent is the committed sale fact that drives competing
// conversation rejection.
type SaleConfirmedEvent struct {
	ConversationID ConversationID
	Listing        listings.ListingID
	Buyer          user.ID
	Seller         user.ID
	At             time.Time
}

func (e SaleConfirmedEvent) EventName() string     { return "sale.confirmed" }
func (e SaleConfirmedEvent) AggregateID() string   { return string(e.ConversationID) }
func (e SaleConfirmedEvent) OccurredAt() time.Time { return e.At }

type SellerRated struct {
	ConversationID ConversationID
	Listing        listings.ListingID
	Buyer          user.ID
	Seller         user.ID
	Rating         int
	AverageRating  float64
	NumReviews     int
	At             time.Time
}

func (e SellerRated) EventName() string     { return "seller.rated" }
func (e SellerRated) AggregateID() string   { return string(e.ConversationID) }
func (e SellerRated) OccurredAt() time.Time { return e.At }
