package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/events"
	domainuser "campusconnect/internal/domain/user"
)

type ConversationRepository struct {
	mu     sync.RWMutex
	items  map[conversations.ConversationID]*conversations.Conversation
	byPair map[string]conversations.ConversationID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		items:  make(map[conversations.ConversationID]*conversations.Conversation),
		byPair: make(map[string]conversations.ConversationID),
	}
}

func (r *ConversationRepository) ByID(ctx context.Context, id conversations.ConversationID) (*conversations.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, conversations.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *ConversationRepository) FindByParticipants(ctx context.Context, a, b domainuser.ID, listing listings.ListingID) (*conversations.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPair[conversations.PairKey(a, b, listing)]
	if !ok {
		return nil, conversations.ErrNotFound
	}
	return cloneConversation(r.items[id]), nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, participant domainuser.ID) ([]*conversations.Conversation, error) {
	return r.collect(func(c *conversations.Conversation) bool {
		return c.Status != conversations.StatusRejected && c.IsParticipant(participant)
	}, func(a, b *conversations.Conversation) bool {
		if !a.LastMessageAt.Equal(b.LastMessageAt) {
			return a.LastMessageAt.After(b.LastMessageAt)
		}
		return a.ID < b.ID
	}), nil
}

func (r *ConversationRepository) OpenForListing(ctx context.Context, listing listings.ListingID, exclude conversations.ConversationID) ([]*conversations.Conversation, error) {
	return r.collect(func(c *conversations.Conversation) bool {
		return c.Listing == listing && c.ID != exclude && c.Status.Open()
	}, byCreatedAt), nil
}

func (r *ConversationRepository) ConfirmedSince(ctx context.Context, since time.Time) ([]*conversations.Conversation, error) {
	return r.collect(func(c *conversations.Conversation) bool {
		return c.SaleStatus == conversations.SaleConfirmed && c.SaleConfirmedAt != nil && !c.SaleConfirmedAt.Before(since)
	}, byCreatedAt), nil
}

func (r *ConversationRepository) Save(ctx context.Context, c *conversations.Conversation) error {
	if c == nil || c.ID == "" {
		return conversations.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.items[c.ID]
	key := c.PairKey()
	switch {
	case exists && current.Version != c.Version:
		return conversations.ErrConcurrentUpdate
	case !exists && c.Version != 0:
		return conversations.ErrConcurrentUpdate
	case !exists:
		if _, taken := r.byPair[key]; taken {
			return conversations.ErrDuplicate
		}
	}
	c.Version++
	r.items[c.ID] = cloneConversation(c)
	r.byPair[key] = c.ID
	return nil
}

func (r *ConversationRepository) MarkBuyerRated(ctx context.Context, id conversations.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return conversations.ErrNotFound
	}
	if err := c.EnsureRateable(); err != nil {
		return err
	}
	c.BuyerRated = true
	c.UpdatedAt = time.Now().UTC()
	c.Version++
	return nil
}

func (r *ConversationRepository) revertConversation(id conversations.ConversationID, prev *conversations.Conversation, written int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.items[id]
	if !exists || current.Version != written {
		return
	}
	if prev == nil {
		delete(r.items, id)
		if key := current.PairKey(); r.byPair[key] == id {
			delete(r.byPair, key)
		}
		return
	}
	r.items[id] = cloneConversation(prev)
	r.byPair[prev.PairKey()] = id
}

func (r *ConversationRepository) unmarkBuyerRated(id conversations.ConversationID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.items[id]; ok && c.BuyerRated {
		c.BuyerRated = false
		c.Version++
	}
}

func (r *ConversationRepository) collect(keep func(*conversations.Conversation) bool, less func(a, b *conversations.Conversation) bool) []*conversations.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*conversations.Conversation
	for _, c := range r.items {
		if keep(c) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byCreatedAt(a, b *conversations.Conversation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func cloneConversation(c *conversations.Conversation) *conversations.Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = append([]domainuser.ID(nil), c.Participants...)
	if c.SaleRequestedAt != nil {
		t := *c.SaleRequestedAt
		out.SaleRequestedAt = &t
	}
	if c.SaleConfirmedAt != nil {
		t := *c.SaleConfirmedAt
		out.SaleConfirmedAt = &t
	}
	out.EventRecorder = events.EventRecorder{}
	return &out
}

// MessageRepository appends messages; insertion order breaks timestamp ties.
type MessageRepository struct {
	mu    sync.RWMutex
	items []conversations.Message
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{}
}

func (r *MessageRepository) Save(ctx context.Context, msg *conversations.Message) error {
	if msg == nil || msg.ID == "" {
		return conversations.ErrMessageIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, *msg)
	return nil
}

func (r *MessageRepository) Between(ctx context.Context, a, b domainuser.ID, listing listings.ListingID) ([]*conversations.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*conversations.Message
	for i := range r.items {
		m := r.items[i]
		pair := (m.Sender == a && m.Receiver == b) || (m.Sender == b && m.Receiver == a)
		if !pair {
			continue
		}
		if listing != "" && m.Listing != listing {
			continue
		}
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MessageRepository) removeMessage(id conversations.MessageID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return
		}
	}
}

var (
	_ conversations.Repository        = (*ConversationRepository)(nil)
	_ conversations.MessageRepository = (*MessageRepository)(nil)
)
