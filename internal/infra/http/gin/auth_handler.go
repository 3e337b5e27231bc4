package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/services/auth"
)

type AuthHTTP interface {
	Logout(c *gin.Context)
	Me(c *gin.Context)
}

// AuthHandler exposes the caller's own session. Sessions are issued by the
// campus identity provider, so there is no login route.
type AuthHandler struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (h AuthHandler) Logout(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.Service.Revoke(c.Request.Context(), p.Token); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h AuthHandler) Me(c *gin.Context) {
	p, ok := requireUser(c)
	if !ok {
		return
	}
	resolved, err := h.Service.ResolveToken(c.Request.Context(), p.Token)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.MapUserProfile(resolved.User))
}

var _ AuthHTTP = AuthHandler{}
