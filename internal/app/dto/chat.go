package dto

import (
	"time"

	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

// Participant is the name/email pair shown in conversation lists.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// ListingSummary is the listing snippet embedded in a conversation.
type ListingSummary struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	PriceCents int64   `json:"price_cents"`
	Category   string  `json:"category"`
	SellerID   string  `json:"seller_id"`
	IsSold     bool    `json:"is_sold"`
}

type Conversation struct {
	ID              string          `json:"id"`
	Participants    []Participant   `json:"participants"`
	ListingID       string          `json:"listing_id,omitempty"`
	Listing         *ListingSummary `json:"listing,omitempty"`
	Status          string          `json:"status"`
	InitiatedBy     Participant     `json:"initiated_by"`
	LastMessageAt   time.Time       `json:"last_message_at"`
	SaleStatus      string          `json:"sale_status"`
	SaleRequestedAt *time.Time      `json:"sale_requested_at,omitempty"`
	SaleConfirmedAt *time.Time      `json:"sale_confirmed_at,omitempty"`
	BuyerRated      bool            `json:"buyer_rated"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	ListingID      string    `json:"listing_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

type MessageList struct {
	Items []Message `json:"items"`
}

// MapConversation renders c. users and listing may be partial; unknown ids
// render without name or email.
func MapConversation(c *conversations.Conversation, users map[domainuser.ID]*domainuser.User, listing *listings.Listing) Conversation {
	if c == nil {
		return Conversation{}
	}
	participants := make([]Participant, 0, len(c.Participants))
	for _, id := range c.Participants {
		participants = append(participants, participant(id, users))
	}
	out := Conversation{
		ID:              string(c.ID),
		Participants:    participants,
		ListingID:       string(c.Listing),
		Status:          string(c.Status),
		InitiatedBy:     participant(c.InitiatedBy, users),
		LastMessageAt:   c.LastMessageAt,
		SaleStatus:      string(c.SaleStatus),
		SaleRequestedAt: c.SaleRequestedAt,
		SaleConfirmedAt: c.SaleConfirmedAt,
		BuyerRated:      c.BuyerRated,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if listing != nil {
		summary := MapListingSummary(listing)
		out.Listing = &summary
	}
	return out
}

func MapListingSummary(l *listings.Listing) ListingSummary {
	return ListingSummary{
		ID:         string(l.ID),
		Title:      l.Title,
		Price:      CentsToPrice(l.PriceCents),
		PriceCents: l.PriceCents,
		Category:   l.Category,
		SellerID:   string(l.Seller),
		IsSold:     l.IsSold,
	}
}

func MapMessage(m *conversations.Message) Message {
	if m == nil {
		return Message{}
	}
	return Message{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.Sender),
		ReceiverID:     string(m.Receiver),
		Content:        m.Content,
		ListingID:      string(m.Listing),
		CreatedAt:      m.CreatedAt,
	}
}

func MapMessages(msgs []*conversations.Message) MessageList {
	items := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, MapMessage(m))
	}
	return MessageList{Items: items}
}

func participant(id domainuser.ID, users map[domainuser.ID]*domainuser.User) Participant {
	p := Participant{ID: string(id)}
	if u, ok := users[id]; ok && u != nil {
		p.Name = u.Name
		p.Email = u.Email
	}
	return p
}
