package memory

import (
	"context"
	"errors"

	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

// The repositories below know how to undo their own writes. A Unit wraps
// every repository that does and replays the undo steps in reverse on
// Rollback. An undo step never overwrites a record another unit has changed
// since.

type listingReverter interface {
	revertListing(id listings.ListingID, prev *listings.Listing, written int64)
}

type conversationReverter interface {
	revertConversation(id conversations.ConversationID, prev *conversations.Conversation, written int64)
	unmarkBuyerRated(id conversations.ConversationID)
}

type userReverter interface {
	revertUser(id domainuser.ID, prev *domainuser.User)
	retractRating(id domainuser.ID, rating int)
}

type messageReverter interface {
	removeMessage(id conversations.MessageID)
}

type complaintReverter interface {
	revertComplaint(id complaints.ComplaintID, prev *complaints.Complaint)
}

type journaledListings struct {
	listings.ListingRepository
	undo   listingReverter
	record func(func())
}

func (r journaledListings) Save(ctx context.Context, listing *listings.Listing) error {
	if listing == nil {
		return r.ListingRepository.Save(ctx, listing)
	}
	prev, err := r.ListingRepository.ByID(ctx, listing.ID)
	if err != nil && !errors.Is(err, listings.ErrNotFound) {
		return err
	}
	if err := r.ListingRepository.Save(ctx, listing); err != nil {
		return err
	}
	id, written := listing.ID, listing.Version
	r.record(func() { r.undo.revertListing(id, prev, written) })
	return nil
}

func (r journaledListings) Delete(ctx context.Context, id listings.ListingID) error {
	prev, err := r.ListingRepository.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.ListingRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.record(func() { r.undo.revertListing(id, prev, 0) })
	return nil
}

type journaledConversations struct {
	conversations.Repository
	undo   conversationReverter
	record func(func())
}

func (r journaledConversations) Save(ctx context.Context, c *conversations.Conversation) error {
	if c == nil {
		return r.Repository.Save(ctx, c)
	}
	prev, err := r.Repository.ByID(ctx, c.ID)
	if err != nil && !errors.Is(err, conversations.ErrNotFound) {
		return err
	}
	if err := r.Repository.Save(ctx, c); err != nil {
		return err
	}
	id, written := c.ID, c.Version
	r.record(func() { r.undo.revertConversation(id, prev, written) })
	return nil
}

func (r journaledConversations) MarkBuyerRated(ctx context.Context, id conversations.ConversationID) error {
	if err := r.Repository.MarkBuyerRated(ctx, id); err != nil {
		return err
	}
	r.record(func() { r.undo.unmarkBuyerRated(id) })
	return nil
}

type journaledUsers struct {
	domainuser.Repository
	undo   userReverter
	record func(func())
}

func (r journaledUsers) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil {
		return r.Repository.Save(ctx, user)
	}
	prev, err := r.Repository.ByID(ctx, user.ID)
	if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
		return err
	}
	if err := r.Repository.Save(ctx, user); err != nil {
		return err
	}
	id := user.ID
	r.record(func() { r.undo.revertUser(id, prev) })
	return nil
}

func (r journaledUsers) ApplyRating(ctx context.Context, id domainuser.ID, rating int) (domainuser.RatingAggregate, error) {
	agg, err := r.Repository.ApplyRating(ctx, id, rating)
	if err != nil {
		return agg, err
	}
	r.record(func() { r.undo.retractRating(id, rating) })
	return agg, nil
}

type journaledMessages struct {
	conversations.MessageRepository
	undo   messageReverter
	record func(func())
}

func (r journaledMessages) Save(ctx context.Context, msg *conversations.Message) error {
	if err := r.MessageRepository.Save(ctx, msg); err != nil {
		return err
	}
	id := msg.ID
	r.record(func() { r.undo.removeMessage(id) })
	return nil
}

type journaledComplaints struct {
	complaints.Repository
	undo   complaintReverter
	record func(func())
}

func (r journaledComplaints) Save(ctx context.Context, c *complaints.Complaint) error {
	if c == nil {
		return r.Repository.Save(ctx, c)
	}
	prev, err := r.Repository.ByID(ctx, c.ID)
	if err != nil && !errors.Is(err, complaints.ErrNotFound) {
		return err
	}
	if err := r.Repository.Save(ctx, c); err != nil {
		return err
	}
	id := c.ID
	r.record(func() { r.undo.revertComplaint(id, prev) })
	return nil
}
