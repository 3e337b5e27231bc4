package negotiation

import (
	"context"
	"errors"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const initiateConversationKey = "negotiation.initiate"

type InitiateConversationCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ActorName       string `json:"-"`
	ReceiverID      string `json:"receiver"`
	ListingID       string `json:"listing"`
	IdempotencyKeyV string `json:"-"`
}

func (c InitiateConversationCommand) Key() string { return initiateConversationKey }

func (c InitiateConversationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c InitiateConversationCommand) IdempotencyScope() string { return c.ActorID }

func (c InitiateConversationCommand) ResultPrototype() any { return &ConversationResult{} }

func (c InitiateConversationCommand) OwnsTransaction() bool { return true }

// ConversationResult pairs a conversation with the message an operation added.
type ConversationResult struct {
	Conversation dto.Conversation `json:"conversation"`
	Message      dto.Message      `json:"message"`
}

type InitiateConversationHandler struct {
	Deps
}

func (h *InitiateConversationHandler) Handle(ctx context.Context, cmd InitiateConversationCommand) (*ConversationResult, error) {
	actor := domainuser.ID(cmd.ActorID)
	receiver := domainuser.ID(cmd.ReceiverID)
	listingID := listings.ListingID(cmd.ListingID)
	if receiver == "" {
		return nil, conversations.ErrReceiverRequired
	}
	if receiver == actor {
		return nil, conversations.ErrSelfConversation
	}

	var (
		result  ConversationResult
		created bool
	)
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if _, err := unit.Users().ByID(ctx, receiver); err != nil {
			return err
		}
		var listing *listings.Listing
		if listingID != "" {
			var err error
			if listing, err = unit.Listings().ByID(ctx, listingID); err != nil {
				return err
			}
		}

		now := h.now()
		conv, err := unit.Conversations().FindByParticipants(ctx, actor, receiver, listingID)
		switch {
		case errors.Is(err, conversations.ErrNotFound):
			conv, err = conversations.NewConversation(conversations.CreateParams{
				ID:        conversations.ConversationID(h.newID()),
				Initiator: actor,
				Receiver:  receiver,
				Listing:   listingID,
				Now:       now,
			})
			if err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		}

		msg, err := h.postMessage(ctx, unit, conv, conversations.MessageParams{
			Sender:   actor,
			Receiver: receiver,
			Content:  conversations.GreetingText,
			Listing:  listingID,
			Now:      now,
		})
		if err != nil {
			return err
		}
		if err := h.record(ctx, conv); err != nil {
			return err
		}
		view, err := render(ctx, unit, conv, listing)
		if err != nil {
			return err
		}
		result = ConversationResult{Conversation: view, Message: dto.MapMessage(msg)}
		return nil
	})
	if err != nil {
		return nil, err
	}

	initiatorName := cmd.ActorName
	if initiatorName == "" {
		initiatorName = fallbackInitiatorName
	}
	h.notify(ctx, "new_chat_request", func(ctx context.Context, n policies.Notifier) error {
		return n.NotifyNewChatRequest(ctx, receiver, initiatorName)
	}, "receiver_id", receiver)

	h.logger().InfoContext(ctx, "conversation initiated",
		"conversation_id", result.Conversation.ID, "initiator_id", actor, "receiver_id", receiver,
		"listing_id", listingID, "created", created)
	return &result, nil
}

var (
	_ commands.Handler[InitiateConversationCommand, *ConversationResult] = (*InitiateConversationHandler)(nil)
	_ middleware.IdempotentCommand                                       = InitiateConversationCommand{}
	_ middleware.SelfTransacted                                          = InitiateConversationCommand{}
)
