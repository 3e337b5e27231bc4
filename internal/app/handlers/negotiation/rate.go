package negotiation

import (
	"context"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	domainuser "campusconnect/internal/domain/user"
)

const rateSellerKey = "negotiation.rate_seller"

type RateSellerCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ConversationID  string `json:"conversation_id" validate:"required"`
	Rating          int    `json:"rating"`
	IdempotencyKeyV string `json:"-"`
}

func (c RateSellerCommand) Key() string { return rateSellerKey }

func (c RateSellerCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c RateSellerCommand) IdempotencyScope() string { return c.ActorID }

func (c RateSellerCommand) ResultPrototype() any { return &dto.SellerRating{} }

func (c RateSellerCommand) OwnsTransaction() bool { return true }

// RateSellerHandler applies the buyer's rating to the seller's aggregate.
// The aggregate increment and the buyerRated flip are both conditional store
// operations, so concurrent ratings neither lose updates nor double count.
type RateSellerHandler struct {
	Deps
}

func (h *RateSellerHandler) Handle(ctx context.Context, cmd RateSellerCommand) (*dto.SellerRating, error) {
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return nil, domainuser.ErrInvalidRating
	}
	actor := domainuser.ID(cmd.ActorID)
	var out dto.SellerRating
	err := uow.Run(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := unit.Conversations().ByID(ctx, conversations.ConversationID(cmd.ConversationID))
		if err != nil {
			return err
		}
		if err := conv.EnsureRateable(); err != nil {
			return err
		}
		listing, err := listingOf(ctx, unit, conv)
		if err != nil {
			return err
		}
		if !isBuyer(conv, listing, actor) {
			return ErrOnlyBuyerCanRate
		}
		if _, err := unit.Users().ByID(ctx, listing.Seller); err != nil {
			return err
		}
		if err := unit.Conversations().MarkBuyerRated(ctx, conv.ID); err != nil {
			return err
		}
		agg, err := unit.Users().ApplyRating(ctx, listing.Seller, cmd.Rating)
		if err != nil {
			return err
		}
		conv.RecordRating(actor, listing.Seller, cmd.Rating, agg, h.now())
		if err := h.record(ctx, conv); err != nil {
			return err
		}
		out = dto.MapSellerRating(agg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "seller rated", "conversation_id", cmd.ConversationID, "buyer_id", actor,
		"rating", cmd.Rating, "average_rating", out.AverageRating, "num_reviews", out.NumReviews)
	return &out, nil
}

var (
	_ commands.Handler[RateSellerCommand, *dto.SellerRating] = (*RateSellerHandler)(nil)
	_ middleware.IdempotentCommand                           = RateSellerCommand{}
)
