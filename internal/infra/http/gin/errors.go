package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusconnect/internal/domain/shared/errs"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusForKind(kind string) int {
	switch kind {
	case "validation":
		return http.StatusBadRequest
	case "not_found":
		return http.StatusNotFound
	case "forbidden":
		return http.StatusForbidden
	case "conflict":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError maps err by kind. Internal failures are logged and hidden
// behind a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	kind := errs.Kind(err)
	status := statusForKind(kind)
	if logger == nil {
		logger = slog.Default()
	}
	ctx := c.Request.Context()
	if status == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "path", c.FullPath(), "error", err)
		c.AbortWithStatusJSON(status, errorBody{Error: "internal server error", Code: "internal"})
		return
	}
	logger.WarnContext(ctx, "request rejected", "path", c.FullPath(), "status", status, "error", err)
	c.AbortWithStatusJSON(status, errorBody{Error: err.Error(), Code: kind})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg, Code: "validation"})
}

// bindJSON decodes the body; an empty body leaves req untouched.
func bindJSON(c *gin.Context, req any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
