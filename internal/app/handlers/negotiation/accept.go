package negotiation

import (
	"context"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const acceptConversationKey = "negotiation.accept"

type AcceptConversationCommand struct {
	ActorID        string `json:"actor_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

func (c AcceptConversationCommand) Key() string { return acceptConversationKey }

func (c AcceptConversationCommand) OwnsTransaction() bool { return true }

type AcceptConversationHandler struct {
	Deps
}

func (h *AcceptConversationHandler) Handle(ctx context.Context, cmd AcceptConversationCommand) (*dto.Conversation, error) {
	actor := domainuser.ID(cmd.ActorID)
	var view dto.Conversation
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := unit.Conversations().ByID(ctx, conversations.ConversationID(cmd.ConversationID))
		if err != nil {
			return err
		}
		if err := conv.Accept(actor, h.now()); err != nil {
			return err
		}
		if err := unit.Conversations().Save(ctx, conv); err != nil {
			return err
		}
		if err := h.record(ctx, conv); err != nil {
			return err
		}
		var listing *listings.Listing
		if conv.HasListing() {
			// Listing removal does not block acceptance.
			listing, _ = unit.Listings().ByID(ctx, conv.Listing)
		}
		view, err = render(ctx, unit, conv, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "conversation accepted", "conversation_id", cmd.ConversationID, "actor_id", actor)
	return &view, nil
}

var _ commands.Handler[AcceptConversationCommand, *dto.Conversation] = (*AcceptConversationHandler)(nil)
