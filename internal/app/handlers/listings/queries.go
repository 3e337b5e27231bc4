package listings

import (
	"context"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/app/uow"
	domainlistings "campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

const (
	getListingKey       = "listings.get"
	searchListingsKey   = "listings.search"
	distinctValuesKey   = "listings.distinct"
	purchasesKey        = "listings.purchases"
	listReviewsKey      = "listings.reviews"
	adminListListingKey = "admin.listings"
)

type GetListingQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	Deps
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.Listing, error) {
	var out dto.Listing
	err := h.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
		if err != nil {
			return err
		}
		out, err = renderOne(ctx, unit, listing)
		return err
	})
	return out, err
}

// SearchListingsQuery filters the public catalog. Sold listings are hidden
// unless IncludeSold is set.
type SearchListingsQuery struct {
	Category    string `json:"category"`
	Department  string `json:"department"`
	SellerID    string `json:"seller"`
	Search      string `json:"search"`
	IncludeSold bool   `json:"include_sold"`
	Limit       int    `json:"limit" validate:"gte=0"`
	Offset      int    `json:"offset" validate:"gte=0"`
}

func (q SearchListingsQuery) Key() string { return searchListingsKey }

type SearchListingsHandler struct {
	Deps
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (dto.ListingPage, error) {
	params := domainlistings.SearchParams{
		Category:    q.Category,
		Department:  q.Department,
		Seller:      domainuser.ID(q.SellerID),
		Text:        q.Search,
		IncludeSold: q.IncludeSold,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}.Normalized()
	return h.page(ctx, params)
}

func (d Deps) page(ctx context.Context, params domainlistings.SearchParams) (dto.ListingPage, error) {
	var out dto.ListingPage
	err := d.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		result, err := unit.Listings().Search(ctx, params)
		if err != nil {
			return err
		}
		items, err := render(ctx, unit, result.Items...)
		if err != nil {
			return err
		}
		out = dto.ListingPage{Items: items, Total: result.Total, Limit: params.Limit, Offset: params.Offset}
		return nil
	})
	return out, err
}

// DistinctValuesQuery lists the non-empty categories or departments in use.
type DistinctValuesQuery struct {
	Field string `json:"field" validate:"oneof=category department"`
}

func (q DistinctValuesQuery) Key() string { return distinctValuesKey }

type DistinctValuesHandler struct {
	Deps
}

func (h *DistinctValuesHandler) Handle(ctx context.Context, q DistinctValuesQuery) (dto.ValueList, error) {
	field := domainlistings.DistinctField(q.Field)
	if field != domainlistings.FieldCategory && field != domainlistings.FieldDepartment {
		return dto.ValueList{}, ErrUnknownField
	}
	var out dto.ValueList
	err := h.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		values, err := unit.Listings().Distinct(ctx, field)
		if err != nil {
			return err
		}
		out = dto.ValueList{Items: append([]string{}, values...)}
		return nil
	})
	return out, err
}

// PurchasesQuery lists what the actor bought, most recent first.
type PurchasesQuery struct {
	ActorID string `json:"actor_id" validate:"required"`
	Limit   int    `json:"limit" validate:"gte=0"`
	Offset  int    `json:"offset" validate:"gte=0"`
}

func (q PurchasesQuery) Key() string { return purchasesKey }

type PurchasesHandler struct {
	Deps
}

func (h *PurchasesHandler) Handle(ctx context.Context, q PurchasesQuery) (dto.ListingPage, error) {
	return h.page(ctx, domainlistings.SearchParams{
		Buyer:    domainuser.ID(q.ActorID),
		OnlySold: true,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}.Normalized())
}

type ListReviewsQuery struct {
	ListingID string `json:"listing_id" validate:"required"`
}

func (q ListReviewsQuery) Key() string { return listReviewsKey }

type ListReviewsHandler struct {
	Deps
}

func (h *ListReviewsHandler) Handle(ctx context.Context, q ListReviewsQuery) (dto.ReviewList, error) {
	var out dto.ReviewList
	err := h.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
		if err != nil {
			return err
		}
		users, err := unit.Users().ByIDs(ctx, dto.ListingUserIDs(listing))
		if err != nil {
			return err
		}
		out = dto.MapReviews(listing.Reviews, users)
		return nil
	})
	return out, err
}

// AdminListListingsQuery pages over every listing, sold or not.
type AdminListListingsQuery struct {
	Search   string `json:"search"`
	Page     int    `json:"page" validate:"gte=0"`
	PageSize int    `json:"page_size" validate:"gte=0,lte=100"`
}

func (q AdminListListingsQuery) Key() string { return adminListListingKey }

func (q AdminListListingsQuery) RequiredRole() domainuser.Role { return domainuser.RoleAdmin }

type AdminListListingsHandler struct {
	Deps
}

func (h *AdminListListingsHandler) Handle(ctx context.Context, q AdminListListingsQuery) (dto.ListingPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	params := domainlistings.SearchParams{
		Text:        q.Search,
		IncludeSold: true,
		Limit:       q.PageSize,
	}.Normalized()
	params.Offset = (page - 1) * params.Limit
	out, err := h.page(ctx, params)
	if err != nil {
		return dto.ListingPage{}, err
	}
	out.Page = page
	return out, nil
}

var (
	_ queries.Handler[GetListingQuery, dto.Listing]            = (*GetListingHandler)(nil)
	_ queries.Handler[SearchListingsQuery, dto.ListingPage]    = (*SearchListingsHandler)(nil)
	_ queries.Handler[DistinctValuesQuery, dto.ValueList]      = (*DistinctValuesHandler)(nil)
	_ queries.Handler[PurchasesQuery, dto.ListingPage]         = (*PurchasesHandler)(nil)
	_ queries.Handler[ListReviewsQuery, dto.ReviewList]        = (*ListReviewsHandler)(nil)
	_ queries.Handler[AdminListListingsQuery, dto.ListingPage] = (*AdminListListingsHandler)(nil)
)
