package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/services/auth"
	domainauth "campusconnect/internal/domain/auth"
	domainuser "campusconnect/internal/domain/user"
)

const principalContextKey = "campusconnect.principal"

type principal struct {
	ID    string
	Email string
	Name  string
	Roles []domainuser.Role
	Token string
}

func (p principal) actor() middleware.Actor {
	return middleware.Actor{ID: domainuser.ID(p.ID), Name: p.Name, Roles: p.Roles}
}

// AuthMiddleware resolves the bearer session, when present, into a principal
// on the gin context and an Actor on the request context. Routes decide for
// themselves whether a principal is required.
type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" && c.FullPath() == wsPath {
		token = strings.TrimSpace(c.Query("token"))
	}
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil {
			m.Logger.WarnContext(c.Request.Context(), "token validation failed", "error", err)
		}
		c.Next()
		return
	}
	user := resolved.User
	p := principal{
		ID:    string(user.ID),
		Email: user.Email,
		Name:  user.Name,
		Roles: append([]domainuser.Role(nil), user.Roles...),
		Token: token,
	}
	c.Set(principalContextKey, p)
	c.Set("user_id", p.ID)
	c.Request = c.Request.WithContext(middleware.ContextWithActor(c.Request.Context(), p.actor()))
	c.Next()
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

// requireUser answers 401 when the request carries no valid session.
func requireUser(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody{Error: "authentication required", Code: "unauthorized"})
		return principal{}, false
	}
	return p, true
}

func extractBearerToken(header string) string {
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
