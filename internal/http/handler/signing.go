package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/middleware"
	"parlay.app/coordinator/internal/service"
)

type SigningHandler struct {
	signing service.SigningService
}

func NewSigningHandler(signing service.SigningService) *SigningHandler {
	return &SigningHandler{signing: signing}
}

type createSessionRequest struct {
	ReturnURL string `json:"return_url,omitempty"`
}

// CreateSession issues a one-time embedded signing URL for the authenticated
// participant.
func (h *SigningHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()

	agreementID, err := strconv.ParseInt(c.Param("agreement_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreement id"})
		return
	}

	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.signing.CreateSession(ctx, agreementID, profile.ID, profile.Role, req.ReturnURL)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Return is where the provider redirects the signer after the embedded
// session ends. It consumes the session token and bounces the signer to
// their recorded destination. Repeat visits land on the same redirect.
func (h *SigningHandler) Return(c *gin.Context) {
	ctx := c.Request.Context()

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	redirect, err := h.signing.CompleteReturn(ctx, token, c.Query("event"))
	if err != nil {
		if service.IsKind(err, service.KindNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown or expired signing session"})
			return
		}
		respondError(c, err)
		return
	}

	c.Redirect(http.StatusFound, redirect)
}
