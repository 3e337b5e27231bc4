package negotiation

import (
	"context"
	"errors"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const rejectCompetingKey = "negotiation.reject_competing"

// RejectCompetingCommand closes every other open conversation on a sold
// listing. Admins send it through POST /admin/listings/:id/settle; the saga
// and sweeper call the Rejecter directly.
type RejectCompetingCommand struct {
	ListingID      string `json:"listing_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

func (c RejectCompetingCommand) Key() string { return rejectCompetingKey }

func (c RejectCompetingCommand) OwnsTransaction() bool { return true }

func (c RejectCompetingCommand) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type RejectCompetingResult struct {
	Rejected int `json:"rejected"`
}

type RejectCompetingHandler struct {
	Rejecter *Rejecter
}

func (h *RejectCompetingHandler) Handle(ctx context.Context, cmd RejectCompetingCommand) (*RejectCompetingResult, error) {
	n, err := h.Rejecter.Reject(ctx, listings.ListingID(cmd.ListingID), conversations.ConversationID(cmd.ConversationID))
	if err != nil {
		return nil, err
	}
	return &RejectCompetingResult{Rejected: n}, nil
}

// Rejecter is the idempotent fan-out step that follows a confirmed sale.
type Rejecter struct {
	Deps
}

type saleFact struct {
	listing    *listings.Listing
	sellerName string
	candidates []conversations.ConversationID
}

// Reject rejects open conversations on listingID other than winner and
// returns how many it changed. Each conversation commits on its own; one
// failure does not stop the rest, and all failures are returned joined.
func (r *Rejecter) Reject(ctx context.Context, listingID listings.ListingID, winner conversations.ConversationID) (int, error) {
	fact, err := r.load(ctx, listingID, winner)
	if err != nil {
		return 0, err
	}

	var (
		rejected int
		failures []error
	)
	for _, id := range fact.candidates {
		buyer, err := r.rejectOne(ctx, fact, id)
		if err != nil {
			r.logger().ErrorContext(ctx, "reject competing conversation failed",
				"conversation_id", id, "listing_id", listingID, "error", err)
			failures = append(failures, err)
			continue
		}
		if buyer == "" {
			continue
		}
		rejected++
		r.notify(ctx, "request_rejected", func(ctx context.Context, n policies.Notifier) error {
			return n.NotifyRequestRejected(ctx, buyer, fact.listing.Title, fact.sellerName)
		}, "buyer_id", buyer, "conversation_id", id)
		r.logger().InfoContext(ctx, "competing conversation rejected",
			"conversation_id", id, "listing_id", listingID, "buyer_id", buyer)
	}
	return rejected, errors.Join(failures...)
}

func (r *Rejecter) load(ctx context.Context, listingID listings.ListingID, winner conversations.ConversationID) (saleFact, error) {
	var fact saleFact
	err := uow.RunWith(ctx, r.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		won, err := unit.Conversations().ByID(ctx, winner)
		if err != nil {
			return err
		}
		if won.SaleStatus != conversations.SaleConfirmed || won.Listing != listingID {
			return conversations.ErrSaleNotConfirmed
		}
		listing, err := unit.Listings().ByID(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.IsSold {
			return ErrListingNotSold
		}
		open, err := unit.Conversations().OpenForListing(ctx, listingID, winner)
		if err != nil {
			return err
		}
		fact.listing = listing
		fact.sellerName = displayName(ctx, unit, listing.Seller, "Seller")
		for _, c := range open {
			fact.candidates = append(fact.candidates, c.ID)
		}
		return nil
	})
	return fact, err
}

// rejectOne reloads the conversation inside its own unit so a concurrent or
// repeated run sees the current state; an already closed conversation is
// left alone and reported with an empty buyer.
func (r *Rejecter) rejectOne(ctx context.Context, fact saleFact, id conversations.ConversationID) (domainuser.ID, error) {
	var buyer domainuser.ID
	err := uow.Run(ctx, r.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		conv, err := unit.Conversations().ByID(ctx, id)
		if err != nil {
			return err
		}
		seller := fact.listing.Seller
		buyer = conv.Reject(seller, r.now())
		if buyer == "" {
			return nil
		}
		if _, err := r.postMessage(ctx, unit, conv, conversations.MessageParams{
			Sender:   seller,
			Receiver: buyer,
			Content:  conversations.RejectionText(fact.listing.Title),
			Listing:  fact.listing.ID,
		}); err != nil {
			return err
		}
		return r.record(ctx, conv)
	})
	if err != nil {
		return "", err
	}
	return buyer, nil
}

var _ commands.Handler[RejectCompetingCommand, *RejectCompetingResult] = (*RejectCompetingHandler)(nil)
