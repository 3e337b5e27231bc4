package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	listingapp "campusconnect/internal/app/handlers/listings"
	"campusconnect/internal/app/queries"
)

type ListingHTTP interface {
	Search(c *gin.Context)
	Categories(c *gin.Context)
	Departments(c *gin.Context)
	Purchases(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	MarkSold(c *gin.Context)
	AddReview(c *gin.Context)
	Reviews(c *gin.Context)
}

// ListingHandler wires listing commands and queries to HTTP.
type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Department  string   `json:"department"`
	Price       float64  `json:"price"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
}

func (r listingRequest) payload() listingapp.ListingPayload {
	images := r.Images
	if len(images) == 0 && strings.TrimSpace(r.Image) != "" {
		images = []string{r.Image}
	}
	return listingapp.ListingPayload{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Department:  r.Department,
		PriceCents:  dto.PriceToCents(r.Price),
		Images:      images,
	}
}

func (h ListingHandler) Search(c *gin.Context) {
	q := listingapp.SearchListingsQuery{
		Category:    c.Query("category"),
		Department:  c.Query("department"),
		SellerID:    c.Query("seller"),
		Search:      c.Query("search"),
		IncludeSold: parseBool(c.Query("include_sold")),
		Limit:       parseInt(c.Query("limit")),
		Offset:      parseInt(c.Query("offset")),
	}
	res, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingPage](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ListingHandler) Categories(c *gin.Context) { h.distinct(c, "category") }

func (h ListingHandler) Departments(c *gin.Context) { h.distinct(c, "department") }

func (h ListingHandler) distinct(c *gin.Context, field string) {
	res, err := queries.Ask[listingapp.DistinctValuesQuery, dto.ValueList](c.Request.Context(), h.Queries, listingapp.DistinctValuesQuery{Field: field})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ListingHandler) Purchases(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	q := listingapp.PurchasesQuery{ActorID: p.ID, Limit: parseInt(c.Query("limit")), Offset: parseInt(c.Query("offset"))}
	res, err := queries.Ask[listingapp.PurchasesQuery, dto.ListingPage](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ListingHandler) Get(c *gin.Context) {
	res, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ListingHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req listingRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := listingapp.CreateListingCommand{ActorID: p.ID, Payload: req.payload(), IdempotencyKeyV: idempotencyKey(c)}
	res, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h ListingHandler) Update(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req listingRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := listingapp.UpdateListingCommand{ActorID: p.ID, ListingID: c.Param("id"), Payload: req.payload()}
	res, err := commands.Dispatch[listingapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h ListingHandler) Delete(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := listingapp.DeleteListingCommand{ActorID: p.ID, ListingID: c.Param("id")}
	res, err := commands.Dispatch[listingapp.DeleteListingCommand, *listingapp.DeleteResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type markSoldRequest struct {
	BuyerID string `json:"buyerId"`
}

func (h ListingHandler) MarkSold(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req markSoldRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := listingapp.MarkSoldCommand{ActorID: p.ID, ListingID: c.Param("id"), BuyerID: req.BuyerID}
	res, err := commands.Dispatch[listingapp.MarkSoldCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h ListingHandler) AddReview(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req reviewRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := listingapp.AddReviewCommand{
		ActorID:         p.ID,
		ListingID:       c.Param("id"),
		Rating:          req.Rating,
		Comment:         req.Comment,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[listingapp.AddReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h ListingHandler) Reviews(c *gin.Context) {
	res, err := queries.Ask[listingapp.ListReviewsQuery, dto.ReviewList](c.Request.Context(), h.Queries, listingapp.ListReviewsQuery{ListingID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ ListingHTTP = ListingHandler{}
