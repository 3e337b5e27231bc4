package ginserver

import (
	"log/slog"

	gin "github.com/gin-gonic/gin"

	domainuser "campusconnect/internal/domain/user"
	"campusconnect/internal/infra/realtime"
)

const wsPath = "/api/v1/ws"

type RealtimeHandler struct {
	Hub    *realtime.Hub
	Logger *slog.Logger
}

// Connect upgrades to a websocket that streams new messages for the caller.
func (h RealtimeHandler) Connect(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Hub.Serve(c.Writer, c.Request, domainuser.ID(p.ID)); err != nil && h.Logger != nil {
		h.Logger.WarnContext(c.Request.Context(), "websocket upgrade failed", "user_id", p.ID, "error", err)
	}
}
