package conversations

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/user"
)

var (
	ErrMessageIDRequired = errs.New(errs.ErrValidation, "messages: id is required")
	ErrContentRequired   = errs.New(errs.ErrValidation, "messages: content is required")
	ErrSenderRequired    = errs.New(errs.ErrValidation, "messages: sender is required")
)

const (
	GreetingText = "Hi! I'm interested in your listing. Is it still available?"

	fallbackSellerName = "Seller"
	fallbackBuyerName  = "Buyer"
)

type MessageID string

// Message is immutable once stored.
type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         user.ID
	Receiver       user.ID
	Content        string
	Listing        listings.ListingID
	CreatedAt      time.Time
}

type MessageRepository interface {
	Save(ctx context.Context, msg *Message) error
	// Between returns messages exchanged by a and b in either direction,
	// oldest first. A non-empty listing narrows the result.
	Between(ctx context.Context, a, b user.ID, listing listings.ListingID) ([]*Message, error)
}

type MessageParams struct {
	ID       MessageID
	Sender   user.ID
	Receiver user.ID
	Content  string
	Listing  listings.ListingID
	Now      time.Time
}

func NewMessage(params MessageParams) (*Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrMessageIDRequired
	}
	if params.Sender == "" {
		return nil, ErrSenderRequired
	}
	if params.Receiver == "" {
		return nil, ErrReceiverRequired
	}
	content := strings.TrimSpace(params.Content)
	if content == "" {
		return nil, ErrContentRequired
	}
	return &Message{
		ID:        params.ID,
		Sender:    params.Sender,
		Receiver:  params.Receiver,
		Content:   content,
		Listing:   params.Listing,
		CreatedAt: utc(params.Now),
	}, nil
}

func SaleRequestText(sellerName string) string {
	return orDefault(sellerName, fallbackSellerName) + " wants to complete the sale. Please confirm to finalize the purchase."
}

func SaleConfirmedText(buyerName string) string {
	return orDefault(buyerName, fallbackBuyerName) + " confirmed the purchase. Sale completed!"
}

func RejectionText(listingTitle string) string {
	return "Sorry, this item \"" + listingTitle + "\" has been sold to another buyer. Your request has been rejected."
}

func orDefault(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
