package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/service"
)

// respondError maps the service error taxonomy onto HTTP. Untyped errors are
// logged and masked as 500s.
func respondError(c *gin.Context, err error) {
	kind, ok := service.KindOf(err)
	if !ok {
		slog.ErrorContext(c.Request.Context(), "request failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": err.Error()}
	if code := service.CodeOf(err); code != "" {
		body["code"] = code
	}

	switch kind {
	case service.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case service.KindAuthorization:
		c.JSON(http.StatusForbidden, body)
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case service.KindConflict:
		c.JSON(http.StatusConflict, body)
	case service.KindExpiredCredentials:
		body["code"] = "CREDENTIALS_EXPIRED"
		c.JSON(http.StatusServiceUnavailable, body)
	case service.KindUpstream:
		slog.ErrorContext(c.Request.Context(), "upstream failure", "error", err, "path", c.FullPath())
		c.JSON(http.StatusBadGateway, gin.H{"error": "signing provider is unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
