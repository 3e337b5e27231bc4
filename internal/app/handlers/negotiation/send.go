package negotiation

import (
	"context"
	"errors"
	"strings"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const sendMessageKey = "negotiation.send_message"

type SendMessageCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ReceiverID      string `json:"receiver"`
	ConversationID  string `json:"conversationId"`
	ListingID       string `json:"listing"`
	Content         string `json:"content"`
	IdempotencyKeyV string `json:"-"`
}

func (c SendMessageCommand) Key() string { return sendMessageKey }

func (c SendMessageCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SendMessageCommand) IdempotencyScope() string { return c.ActorID }

func (c SendMessageCommand) ResultPrototype() any { return &dto.Message{} }

func (c SendMessageCommand) OwnsTransaction() bool { return true }

type SendMessageHandler struct {
	Deps
}

func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*dto.Message, error) {
	actor := domainuser.ID(cmd.ActorID)
	if cmd.ReceiverID == "" && cmd.ConversationID == "" {
		return nil, ErrReceiverOrConversationRequired
	}
	if strings.TrimSpace(cmd.Content) == "" {
		return nil, conversations.ErrContentRequired
	}

	var out dto.Message
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := h.resolve(ctx, unit, actor, cmd)
		if err != nil {
			return err
		}
		if err := conv.EnsureCanMessage(actor); err != nil {
			return err
		}
		receiver := conv.Counterpart(actor)
		if cmd.ReceiverID != "" && domainuser.ID(cmd.ReceiverID) != receiver {
			return ErrReceiverMismatch
		}
		listingID := listings.ListingID(cmd.ListingID)
		if listingID == "" {
			listingID = conv.Listing
		}
		msg, err := h.postMessage(ctx, unit, conv, conversations.MessageParams{
			Sender:   actor,
			Receiver: receiver,
			Content:  cmd.Content,
			Listing:  listingID,
		})
		if err != nil {
			return err
		}
		if err := h.record(ctx, conv); err != nil {
			return err
		}
		out = dto.MapMessage(msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().DebugContext(ctx, "message sent", "conversation_id", out.ConversationID, "sender_id", actor)
	return &out, nil
}

// resolve finds the conversation by id or by pair and listing. A missing
// conversation is reported as forbidden so existence does not leak.
func (h *SendMessageHandler) resolve(ctx context.Context, unit uow.UnitOfWork, actor domainuser.ID, cmd SendMessageCommand) (*conversations.Conversation, error) {
	var (
		conv *conversations.Conversation
		err  error
	)
	if cmd.ConversationID != "" {
		conv, err = unit.Conversations().ByID(ctx, conversations.ConversationID(cmd.ConversationID))
	} else {
		conv, err = unit.Conversations().FindByParticipants(ctx, actor, domainuser.ID(cmd.ReceiverID), listings.ListingID(cmd.ListingID))
	}
	if errors.Is(err, conversations.ErrNotFound) {
		return nil, ErrConversationUnavailable
	}
	return conv, err
}

var (
	_ commands.Handler[SendMessageCommand, *dto.Message] = (*SendMessageHandler)(nil)
	_ middleware.IdempotentCommand                       = SendMessageCommand{}
)
