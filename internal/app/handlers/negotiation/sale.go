package negotiation

import (
	"context"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const initiateSaleKey = "negotiation.initiate_sale"

type InitiateSaleCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ActorName       string `json:"-"`
	ConversationID  string `json:"conversationId" validate:"required"`
	IdempotencyKeyV string `json:"-"`
}

func (c InitiateSaleCommand) Key() string { return initiateSaleKey }

func (c InitiateSaleCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c InitiateSaleCommand) IdempotencyScope() string { return c.ActorID }

func (c InitiateSaleCommand) ResultPrototype() any { return &ConversationResult{} }

func (c InitiateSaleCommand) OwnsTransaction() bool { return true }

// InitiateSaleHandler lets the seller ask the buyer to confirm the purchase.
type InitiateSaleHandler struct {
	Deps
}

func (h *InitiateSaleHandler) Handle(ctx context.Context, cmd InitiateSaleCommand) (*ConversationResult, error) {
	actor := domainuser.ID(cmd.ActorID)
	var result ConversationResult
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := unit.Conversations().ByID(ctx, conversations.ConversationID(cmd.ConversationID))
		if err != nil {
			return err
		}
		listing, err := listingOf(ctx, unit, conv)
		if err != nil {
			return err
		}
		if !isSeller(listing, actor) {
			return ErrOnlySellerCanInitiate
		}
		if err := requireParticipant(conv, actor); err != nil {
			return err
		}
		if listing.IsSold {
			return listings.ErrAlreadySold
		}
		buyer := conv.Counterpart(actor)
		if buyer == "" {
			return ErrBuyerNotFound
		}

		now := h.now()
		if err := conv.RequestSale(actor, now); err != nil {
			return err
		}
		sellerName := cmd.ActorName
		if sellerName == "" {
			sellerName = displayName(ctx, unit, actor, "")
		}
		msg, err := h.postMessage(ctx, unit, conv, conversations.MessageParams{
			Sender:   actor,
			Receiver: buyer,
			Content:  conversations.SaleRequestText(sellerName),
			Listing:  conv.Listing,
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
	h.logger().InfoContext(ctx, "sale requested", "conversation_id", cmd.ConversationID, "seller_id", actor)
	return &result, nil
}

var (
	_ commands.Handler[InitiateSaleCommand, *ConversationResult] = (*InitiateSaleHandler)(nil)
	_ middleware.IdempotentCommand                               = InitiateSaleCommand{}
)
