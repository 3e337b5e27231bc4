package listings

import (
	"context"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/uow"
	domainlistings "campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	deleteListingKey = "listings.delete"
	markSoldKey      = "listings.mark_sold"
	addReviewKey     = "listings.add_review"
)

// ListingPayload carries the seller-editable fields. Price is in cents.
type ListingPayload struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Department  string   `json:"department"`
	PriceCents  int64    `json:"price_cents" validate:"gte=0"`
	Images      []string `json:"images" validate:"max=4"`
}

func (p ListingPayload) details() domainlistings.Details {
	return domainlistings.Details{
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Department:  p.Department,
		PriceCents:  p.PriceCents,
		Images:      append([]string(nil), p.Images...),
	}
}

type CreateListingCommand struct {
	ActorID         string         `json:"actor_id" validate:"required"`
	Payload         ListingPayload `json:"payload"`
	IdempotencyKeyV string         `json:"-"`
}

func (c CreateListingCommand) Key() string { return createListingKey }

func (c CreateListingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateListingCommand) IdempotencyScope() string { return c.ActorID }

func (c CreateListingCommand) ResultPrototype() any { return &dto.Listing{} }

type CreateListingHandler struct {
	Deps
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	var out dto.Listing
	err := h.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		d := cmd.Payload.details()
		listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
			ID:          domainlistings.ListingID(h.newID()),
			Seller:      domainuser.ID(cmd.ActorID),
			Title:       d.Title,
			Description: d.Description,
			Category:    d.Category,
			Department:  d.Department,
			PriceCents:  d.PriceCents,
			Images:      d.Images,
			Now:         h.now(),
		})
		if err != nil {
			return err
		}
		if err := h.save(ctx, unit, listing); err != nil {
			return err
		}
		out, err = renderOne(ctx, unit, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "listing created", "listing_id", out.ID, "seller_id", cmd.ActorID)
	return &out, nil
}

type UpdateListingCommand struct {
	ActorID   string         `json:"actor_id" validate:"required"`
	ListingID string         `json:"listing_id" validate:"required"`
	Payload   ListingPayload `json:"payload"`
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

type UpdateListingHandler struct {
	Deps
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	var out dto.Listing
	err := h.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
		if err != nil {
			return err
		}
		if err := listing.Update(domainuser.ID(cmd.ActorID), cmd.Payload.details(), h.now()); err != nil {
			return err
		}
		if err := h.save(ctx, unit, listing); err != nil {
			return err
		}
		out, err = renderOne(ctx, unit, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "listing updated", "listing_id", cmd.ListingID, "seller_id", cmd.ActorID)
	return &out, nil
}

type DeleteListingCommand struct {
	ActorID   string `json:"actor_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
}

func (c DeleteListingCommand) Key() string { return deleteListingKey }

// DeleteResult acknowledges a removal.
type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type DeleteListingHandler struct {
	Deps
}

func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (*DeleteResult, error) {
	err := h.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		id := domainlistings.ListingID(cmd.ListingID)
		listing, err := unit.Listings().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := listing.EnsureDeletable(domainuser.ID(cmd.ActorID)); err != nil {
			return err
		}
		return unit.Listings().Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "listing deleted", "listing_id", cmd.ListingID, "seller_id", cmd.ActorID)
	return &DeleteResult{ID: cmd.ListingID, Deleted: true}, nil
}

// MarkSoldCommand lets a seller close a listing sold outside a conversation.
type MarkSoldCommand struct {
	ActorID   string `json:"actor_id" validate:"required"`
	ListingID string `json:"listing_id" validate:"required"`
	BuyerID   string `json:"buyer_id"`
}

func (c MarkSoldCommand) Key() string { return markSoldKey }

type MarkSoldHandler struct {
	Deps
}

func (h *MarkSoldHandler) Handle(ctx context.Context, cmd MarkSoldCommand) (*dto.Listing, error) {
	var out dto.Listing
	err := h.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
		if err != nil {
			return err
		}
		if !listing.IsSeller(domainuser.ID(cmd.ActorID)) {
			return domainlistings.ErrNotSeller
		}
		buyer := domainuser.ID(cmd.BuyerID)
		if buyer != "" {
			if _, err := unit.Users().ByID(ctx, buyer); err != nil {
				return err
			}
		}
		if err := listing.MarkSold(buyer, h.now()); err != nil {
			return err
		}
		if err := h.save(ctx, unit, listing); err != nil {
			return err
		}
		out, err = renderOne(ctx, unit, listing)
		return err
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "listing marked sold", "listing_id", cmd.ListingID, "buyer_id", cmd.BuyerID)
	return &out, nil
}

type AddReviewCommand struct {
	ActorID         string `json:"actor_id" validate:"required"`
	ListingID       string `json:"listing_id" validate:"required"`
	Rating          int    `json:"rating" validate:"min=1,max=5"`
	Comment         string `json:"comment" validate:"max=1000"`
	IdempotencyKeyV string `json:"-"`
}

func (c AddReviewCommand) Key() string { return addReviewKey }

func (c AddReviewCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c AddReviewCommand) IdempotencyScope() string { return c.ActorID }

func (c AddReviewCommand) ResultPrototype() any { return &dto.Review{} }

type AddReviewHandler struct {
	Deps
}

func (h *AddReviewHandler) Handle(ctx context.Context, cmd AddReviewCommand) (*dto.Review, error) {
	actor := domainuser.ID(cmd.ActorID)
	var out dto.Review
	err := h.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
		if err != nil {
			return err
		}
		review, err := listing.AddReview(actor, cmd.Rating, cmd.Comment, h.now())
		if err != nil {
			return err
		}
		if err := h.save(ctx, unit, listing); err != nil {
			return err
		}
		users, err := unit.Users().ByIDs(ctx, []domainuser.ID{actor})
		if err != nil {
			return err
		}
		out = dto.MapReviews([]domainlistings.Review{review}, users).Items[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	h.logger().InfoContext(ctx, "listing reviewed", "listing_id", cmd.ListingID, "reviewer_id", actor, "rating", cmd.Rating)
	return &out, nil
}

var (
	_ commands.Handler[CreateListingCommand, *dto.Listing]  = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, *dto.Listing]  = (*UpdateListingHandler)(nil)
	_ commands.Handler[DeleteListingCommand, *DeleteResult] = (*DeleteListingHandler)(nil)
	_ commands.Handler[MarkSoldCommand, *dto.Listing]       = (*MarkSoldHandler)(nil)
	_ commands.Handler[AddReviewCommand, *dto.Review]       = (*AddReviewHandler)(nil)
	_ middleware.IdempotentCommand                          = CreateListingCommand{}
	_ middleware.IdempotentCommand                          = AddReviewCommand{}
)
