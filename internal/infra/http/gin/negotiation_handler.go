package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/handlers/negotiation"
	"campusconnect/internal/app/queries"
)

type NegotiationHTTP interface {
	Initiate(c *gin.Context)
	Accept(c *gin.Context)
	Conversations(c *gin.Context)
	Send(c *gin.Context)
	Messages(c *gin.Context)
	InitiateSale(c *gin.Context)
	ConfirmSale(c *gin.Context)
	Rate(c *gin.Context)
}

// NegotiationHandler exposes the conversation and sale flow under /messages.
type NegotiationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type initiateRequest struct {
	Receiver string `json:"receiver"`
	Listing  string `json:"listing"`
}

func (h NegotiationHandler) Initiate(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req initiateRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := negotiation.InitiateConversationCommand{
		ActorID:         p.ID,
		ActorName:       p.Name,
		ReceiverID:      req.Receiver,
		ListingID:       req.Listing,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[negotiation.InitiateConversationCommand, *negotiation.ConversationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h NegotiationHandler) Accept(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	cmd := negotiation.AcceptConversationCommand{ActorID: p.ID, ConversationID: c.Param("id")}
	res, err := commands.Dispatch[negotiation.AcceptConversationCommand, *dto.Conversation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h NegotiationHandler) Conversations(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := queries.Ask[negotiation.GetConversationsQuery, dto.ConversationList](c.Request.Context(), h.Queries, negotiation.GetConversationsQuery{ActorID: p.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type sendRequest struct {
	Receiver       string `json:"receiver"`
	ConversationID string `json:"conversationId"`
	Listing        string `json:"listing"`
	Content        string `json:"content"`
}

func (h NegotiationHandler) Send(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req sendRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := negotiation.SendMessageCommand{
		ActorID:         p.ID,
		ReceiverID:      req.Receiver,
		ConversationID:  req.ConversationID,
		ListingID:       req.Listing,
		Content:         req.Content,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[negotiation.SendMessageCommand, *dto.Message](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h NegotiationHandler) Messages(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	q := negotiation.GetMessagesQuery{ActorID: p.ID, CounterpartID: c.Query("userId"), ListingID: c.Query("listingId")}
	res, err := queries.Ask[negotiation.GetMessagesQuery, dto.MessageList](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type saleRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
}

func (h NegotiationHandler) InitiateSale(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversationId is required")
		return
	}
	cmd := negotiation.InitiateSaleCommand{
		ActorID:         p.ID,
		ActorName:       p.Name,
		ConversationID:  req.ConversationID,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[negotiation.InitiateSaleCommand, *negotiation.ConversationResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h NegotiationHandler) ConfirmSale(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "conversationId is required")
		return
	}
	cmd := negotiation.ConfirmSaleCommand{
		ActorID:         p.ID,
		ActorName:       p.Name,
		ConversationID:  req.ConversationID,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[negotiation.ConfirmSaleCommand, *negotiation.ConfirmSaleResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type rateRequest struct {
	Rating int `json:"rating"`
}

func (h NegotiationHandler) Rate(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := negotiation.RateSellerCommand{
		ActorID:         p.ID,
		ConversationID:  c.Param("id"),
		Rating:          req.Rating,
		IdempotencyKeyV: idempotencyKey(c),
	}
	res, err := commands.Dispatch[negotiation.RateSellerCommand, *dto.SellerRating](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ NegotiationHTTP = NegotiationHandler{}
