package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	userapp "campusconnect/internal/app/handlers/users"
	"campusconnect/internal/app/queries"
)

type UserHTTP interface {
	Profile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	Contacts(c *gin.Context)
}

type UserHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h UserHandler) Profile(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	res, err := queries.Ask[userapp.GetProfileQuery, dto.UserProfile](c.Request.Context(), h.Queries, userapp.GetProfileQuery{UserID: p.ID})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type profileRequest struct {
	Name    *string `json:"name"`
	College *string `json:"college"`
}

func (h UserHandler) UpdateProfile(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := userapp.UpdateProfileCommand{ActorID: p.ID, Name: req.Name, College: req.College}
	res, err := commands.Dispatch[userapp.UpdateProfileCommand, *dto.UserProfile](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Contacts lists other users the caller can start a chat with.
func (h UserHandler) Contacts(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	q := userapp.ListContactsQuery{ActorID: p.ID, Search: c.Query("search")}
	res, err := queries.Ask[userapp.ListContactsQuery, dto.UserList](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ UserHTTP = UserHandler{}
