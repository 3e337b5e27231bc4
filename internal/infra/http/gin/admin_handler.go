package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	listingapp "campusconnect/internal/app/handlers/listings"
	"campusconnect/internal/app/handlers/negotiation"
	userapp "campusconnect/internal/app/handlers/users"
	"campusconnect/internal/app/queries"
)

type AdminHTTP interface {
	ListUsers(c *gin.Context)
	GetUser(c *gin.Context)
	ListListings(c *gin.Context)
	SettleListing(c *gin.Context)
}

// AdminHandler serves the admin panel. Role checks happen in the command and
// query pipelines, which answer 403 for non-admins.
type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h AdminHandler) ListUsers(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	q := userapp.AdminListUsersQuery{
		Search: c.Query("search"),
		Limit:  parseIntWithDefault(c.Query("limit"), 10),
		Offset: parseInt(c.Query("offset")),
	}
	res, err := queries.Ask[userapp.AdminListUsersQuery, dto.UserList](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) GetUser(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	res, err := queries.Ask[userapp.AdminGetUserQuery, dto.UserProfile](c.Request.Context(), h.Queries, userapp.AdminGetUserQuery{UserID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h AdminHandler) ListListings(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	q := listingapp.AdminListListingsQuery{
		Search:   c.Query("search"),
		Page:     parseIntWithDefault(c.Query("page"), 1),
		PageSize: parseIntWithDefault(c.Query("pageSize"), 20),
	}
	res, err := queries.Ask[listingapp.AdminListListingsQuery, dto.ListingPage](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type settleRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
}

// SettleListing reruns the rejection of competing conversations for a sold
// listing, for sales the saga and sweeper have not finished.
func (h AdminHandler) SettleListing(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	var req settleRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := negotiation.RejectCompetingCommand{ListingID: c.Param("id"), ConversationID: req.ConversationID}
	res, err := commands.Dispatch[negotiation.RejectCompetingCommand, *negotiation.RejectCompetingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ AdminHTTP = AdminHandler{}
