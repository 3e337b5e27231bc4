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

const confirmSaleKey = "negotiation.confirm_sale"

type ConfirmSaleCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ActorName       string `json:"-"`
	ConversationID  string `json:"conversationId" validate:"required"`
	IdempotencyKeyV string `json:"-"`
}

func (c ConfirmSaleCommand) Key() string { return confirmSaleKey }

func (c ConfirmSaleCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c ConfirmSaleCommand) IdempotencyScope() string { return c.ActorID }

func (c ConfirmSaleCommand) ResultPrototype() any { return &ConfirmSaleResult{} }

func (c ConfirmSaleCommand) OwnsTransaction() bool { return true }

type ConfirmSaleResult struct {
	Listing               dto.Listing      `json:"listing"`
	Conversation          dto.Conversation `json:"conversation"`
	ConfirmationMessage   dto.Message      `json:"confirmationMessage"`
	RejectedConversations int              `json:"rejectedConversations"`
}

// ConfirmSaleHandler commits the sale in one unit of work (listing sold,
// conversation confirmed, confirmation message) and then rejects competing
// conversations through the Rejecter, one unit per conversation.
type ConfirmSaleHandler struct {
	Deps
	Rejecter *Rejecter
}

func (h *ConfirmSaleHandler) Handle(ctx context.Context, cmd ConfirmSaleCommand) (*ConfirmSaleResult, error) {
	actor := domainuser.ID(cmd.ActorID)
	var (
		result    ConfirmSaleResult
		listingID listings.ListingID
		winner    conversations.ConversationID
	)
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := unit.Conversations().ByID(ctx, conversations.ConversationID(cmd.ConversationID))
		if err != nil {
			return err
		}
		listing, err := listingOf(ctx, unit, conv)
		if err != nil {
			return err
		}
		if conv.SaleStatus != conversations.SalePendingConfirmation {
			return conversations.ErrNoSalePending
		}
		if isSeller(listing, actor) {
			return ErrSellerCannotConfirm
		}
		if err := requireParticipant(conv, actor); err != nil {
			return err
		}

		now := h.now()
		if err := listing.MarkSold(actor, now); err != nil {
			return err
		}
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return err
		}
		if err := conv.ConfirmSale(actor, listing.Seller, now); err != nil {
			return err
		}
		buyerName := cmd.ActorName
		if buyerName == "" {
			buyerName = displayName(ctx, unit, actor, "")
		}
		msg, err := h.postMessage(ctx, unit, conv, conversations.MessageParams{
			Sender:   actor,
			Receiver: conv.Counterpart(actor),
			Content:  conversations.SaleConfirmedText(buyerName),
			Listing:  conv.Listing,
			Now:      now,
		})
		if err != nil {
			return err
		}
		if err := h.record(ctx, listing, conv); err != nil {
			return err
		}

		users, err := unit.Users().ByIDs(ctx, dto.ListingUserIDs(listing))
		if err != nil {
			return err
		}
		view, err := render(ctx, unit, conv, listing)
		if err != nil {
			return err
		}
		result = ConfirmSaleResult{
			Listing:             dto.MapListing(listing, users),
			Conversation:        view,
			ConfirmationMessage: dto.MapMessage(msg),
		}
		listingID, winner = listing.ID, conv.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "sale confirmed", "conversation_id", winner, "listing_id", listingID, "buyer_id", actor)

	// The sale is committed. Rejection failures are logged and resumed by
	// the settlement saga and sweeper.
	if h.Rejecter != nil {
		rejected, rejErr := h.Rejecter.Reject(ctx, listingID, winner)
		if rejErr != nil {
			h.logger().ErrorContext(ctx, "competing conversations not fully rejected",
				"listing_id", listingID, "conversation_id", winner, "rejected", rejected, "error", rejErr)
		}
		result.RejectedConversations = rejected
	}
	return &result, nil
}

var (
	_ commands.Handler[ConfirmSaleCommand, *ConfirmSaleResult] = (*ConfirmSaleHandler)(nil)
	_ middleware.IdempotentCommand                             = ConfirmSaleCommand{}
)
