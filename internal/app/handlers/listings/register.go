package listings

import (
	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/domain/shared/errs"
)

var ErrUnknownField = errs.New(errs.ErrValidation, "listings: unknown field")

func Register(cmds *commands.Registry, qs *queries.Registry, deps Deps) {
	commands.Register[CreateListingCommand, *dto.Listing](cmds, createListingKey, &CreateListingHandler{Deps: deps})
	commands.Register[UpdateListingCommand, *dto.Listing](cmds, updateListingKey, &UpdateListingHandler{Deps: deps})
	commands.Register[DeleteListingCommand, *DeleteResult](cmds, deleteListingKey, &DeleteListingHandler{Deps: deps})
	commands.Register[MarkSoldCommand, *dto.Listing](cmds, markSoldKey, &MarkSoldHandler{Deps: deps})
	commands.Register[AddReviewCommand, *dto.Review](cmds, addReviewKey, &AddReviewHandler{Deps: deps})

	queries.Register[GetListingQuery, dto.Listing](qs, getListingKey, &GetListingHandler{Deps: deps})
	queries.Register[SearchListingsQuery, dto.ListingPage](qs, searchListingsKey, &SearchListingsHandler{Deps: deps})
	queries.Register[DistinctValuesQuery, dto.ValueList](qs, distinctValuesKey, &DistinctValuesHandler{Deps: deps})
	queries.Register[PurchasesQuery, dto.ListingPage](qs, purchasesKey, &PurchasesHandler{Deps: deps})
	queries.Register[ListReviewsQuery, dto.ReviewList](qs, listReviewsKey, &ListReviewsHandler{Deps: deps})
	queries.Register[AdminListListingsQuery, dto.ListingPage](qs, adminListListingKey, &AdminListListingsHandler{Deps: deps})
}
