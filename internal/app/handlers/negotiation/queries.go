package negotiation

import (
	"context"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const (
	getMessagesKey      = "negotiation.messages"
	getConversationsKey = "negotiation.conversations"
)

type GetMessagesQuery struct {
	ActorID       string `json:"actor_id" validate:"required"`
	CounterpartID string `json:"userId"`
	ListingID     string `json:"listingId"`
}

func (q GetMessagesQuery) Key() string { return getMessagesKey }

type GetMessagesHandler struct {
	Deps
}

func (h *GetMessagesHandler) Handle(ctx context.Context, q GetMessagesQuery) (dto.MessageList, error) {
	if q.CounterpartID == "" {
		return dto.MessageList{}, ErrCounterpartRequired
	}
	unit, ctx, _, release, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.MessageList{}, err
	}
	defer release()

	msgs, err := unit.Messages().Between(ctx, domainuser.ID(q.ActorID), domainuser.ID(q.CounterpartID), listings.ListingID(q.ListingID))
	if err != nil {
		return dto.MessageList{}, err
	}
	return dto.MapMessages(msgs), nil
}

type GetConversationsQuery struct {
	ActorID string `json:"actor_id" validate:"required"`
}

func (q GetConversationsQuery) Key() string { return getConversationsKey }

type GetConversationsHandler struct {
	Deps
}

func (h *GetConversationsHandler) Handle(ctx context.Context, q GetConversationsQuery) (dto.ConversationList, error) {
	unit, ctx, _, release, err := uow.Acquire(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ConversationList{}, err
	}
	defer release()

	convs, err := unit.Conversations().ListForUser(ctx, domainuser.ID(q.ActorID))
	if err != nil {
		return dto.ConversationList{}, err
	}

	userIDs, listingIDs := references(convs)
	users, err := unit.Users().ByIDs(ctx, userIDs)
	if err != nil {
		return dto.ConversationList{}, err
	}
	listingsByID, err := unit.Listings().ByIDs(ctx, listingIDs)
	if err != nil {
		return dto.ConversationList{}, err
	}

	items := make([]dto.Conversation, 0, len(convs))
	for _, c := range convs {
		items = append(items, dto.MapConversation(c, users, listingsByID[c.Listing]))
	}
	return dto.ConversationList{Items: items}, nil
}

func references(convs []*conversations.Conversation) ([]domainuser.ID, []listings.ListingID) {
	seenUsers := make(map[domainuser.ID]struct{})
	seenListings := make(map[listings.ListingID]struct{})
	var userIDs []domainuser.ID
	var listingIDs []listings.ListingID
	for _, c := range convs {
		for _, id := range append([]domainuser.ID{c.InitiatedBy}, c.Participants...) {
			if _, ok := seenUsers[id]; ok || id == "" {
				continue
			}
			seenUsers[id] = struct{}{}
			userIDs = append(userIDs, id)
		}
		if c.Listing == "" {
			continue
		}
		if _, ok := seenListings[c.Listing]; !ok {
			seenListings[c.Listing] = struct{}{}
			listingIDs = append(listingIDs, c.Listing)
		}
	}
	return userIDs, listingIDs
}

var (
	_ queries.Handler[GetMessagesQuery, dto.MessageList]           = (*GetMessagesHandler)(nil)
	_ queries.Handler[GetConversationsQuery, dto.ConversationList] = (*GetConversationsHandler)(nil)
)
