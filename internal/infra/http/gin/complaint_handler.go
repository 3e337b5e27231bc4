package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/commands"
	"campusconnect/internal/app/dto"
	complaintapp "campusconnect/internal/app/handlers/complaints"
	"campusconnect/internal/app/queries"
)

type ComplaintHTTP interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	UpdateStatus(c *gin.Context)
}

type ComplaintHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type complaintRequest struct {
	ReportedUser    string `json:"reportedUser"`
	ReportedListing string `json:"reportedListing"`
	Type            string `json:"type"`
	Description     string `json:"description"`
}

func (h ComplaintHandler) Create(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req complaintRequest
	if !bindJSON(c, &req) {
		return
	}
	cmd := complaintapp.CreateComplaintCommand{
		ActorID:           p.ID,
		ReportedUserID:    req.ReportedUser,
		ReportedListingID: req.ReportedListing,
		Type:              req.Type,
		Description:       req.Description,
	}
	res, err := commands.Dispatch[complaintapp.CreateComplaintCommand, *dto.Complaint](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// List serves both /complaints and /admin/complaints; the query itself is
// admin-only.
func (h ComplaintHandler) List(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	q := complaintapp.ListComplaintsQuery{
		Status: c.Query("status"),
		Limit:  parseIntWithDefault(c.Query("limit"), 50),
		Offset: parseInt(c.Query("offset")),
	}
	res, err := queries.Ask[complaintapp.ListComplaintsQuery, dto.ComplaintList](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type complaintStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h ComplaintHandler) UpdateStatus(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	var req complaintStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	cmd := complaintapp.UpdateStatusCommand{ActorID: p.ID, ComplaintID: c.Param("id"), Status: req.Status}
	res, err := commands.Dispatch[complaintapp.UpdateStatusCommand, *dto.Complaint](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

var _ ComplaintHTTP = ComplaintHandler{}
