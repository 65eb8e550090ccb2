package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/dto"
	"parlay.app/coordinator/internal/http/middleware"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/service"
)

type AgreementHandler struct {
	envelopes service.EnvelopeService
	reconcile service.ReconcileService
}

func NewAgreementHandler(envelopes service.EnvelopeService, reconcile service.ReconcileService) *AgreementHandler {
	return &AgreementHandler{envelopes: envelopes, reconcile: reconcile}
}

type generateAgreementRequest struct {
	SignerMode string `json:"signer_mode,omitempty"`
}

// Generate creates an agreement and envelope for the room's current terms,
// or returns the existing one when it is still valid.
func (h *AgreementHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()

	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req generateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	agreement, err := h.envelopes.CreateOrReuse(ctx, roomID, profile.ID, profile.Role, model.SignerMode(req.SignerMode))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAgreementResponse(agreement))
}

// Get returns the agreement after converging it with the provider's state.
func (h *AgreementHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()

	agreementID, err := strconv.ParseInt(c.Param("agreement_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreement id"})
		return
	}

	agreement, err := h.reconcile.ReconcileAgreement(ctx, agreementID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAgreementResponse(agreement))
}
