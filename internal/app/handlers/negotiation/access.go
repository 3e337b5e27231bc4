package negotiation

import (
	"context"

	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

func requireParticipant(c *conversations.Conversation, actor domainuser.ID) error {
	return c.RequireParticipant(actor)
}

// listingOf loads the listing a conversation negotiates. It is the single
// place the seller of a conversation is derived from.
func listingOf(ctx context.Context, unit uow.UnitOfWork, c *conversations.Conversation) (*listings.Listing, error) {
	if !c.HasListing() {
		return nil, conversations.ErrNoListing
	}
	return unit.Listings().ByID(ctx, c.Listing)
}

func isSeller(listing *listings.Listing, actor domainuser.ID) bool {
	return listing != nil && listing.IsSeller(actor)
}

// isBuyer reports whether actor is the non-seller side of c.
func isBuyer(c *conversations.Conversation, listing *listings.Listing, actor domainuser.ID) bool {
	return c.IsParticipant(actor) && !isSeller(listing, actor)
}
