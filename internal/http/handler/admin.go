package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/dto"
	"parlay.app/coordinator/internal/model"
	"parlay.app/coordinator/internal/service"
	"parlay.app/coordinator/internal/store"
)

// AdminHandler exposes operator endpoints: signer swaps, manual
// reconciliation and the audit trail.
type AdminHandler struct {
	envelopes   service.EnvelopeService
	reconcile   service.ReconcileService
	connections *service.ConnectionManager
	audit       store.AuditLogStore
	adminAPIKey string
}

func NewAdminHandler(envelopes service.EnvelopeService, reconcile service.ReconcileService, connections *service.ConnectionManager, audit store.AuditLogStore, adminAPIKey string) *AdminHandler {
	return &AdminHandler{
		envelopes:   envelopes,
		reconcile:   reconcile,
		connections: connections,
		audit:       audit,
		adminAPIKey: adminAPIKey,
	}
}

type swapAgentRequest struct {
	AgentProfileID int64 `json:"agent_profile_id" binding:"required"`
}

// SwapAgent replaces the agent signer on a live envelope.
func (h *AdminHandler) SwapAgent(c *gin.Context) {
	ctx := c.Request.Context()

	agreementID, err := strconv.ParseInt(c.Param("agreement_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreement id"})
		return
	}

	var req swapAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: agent_profile_id is required"})
		return
	}

	agreement, err := h.envelopes.SwapAgentSigner(ctx, agreementID, req.AgentProfileID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAgreementResponse(agreement))
}

// Reconcile forces a single agreement to converge with the provider.
func (h *AdminHandler) Reconcile(c *gin.Context) {
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

// Sweep runs a full reconciliation pass over every live envelope.
func (h *AdminHandler) Sweep(c *gin.Context) {
	stats, err := h.reconcile.SweepAll(c.Request.Context(), 500)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scanned": stats.Scanned, "failed": stats.Failed})
}

type authorizeConnectionRequest struct {
	Code string `json:"code" binding:"required"`
}

// AuthorizeConnection completes the provider's OAuth consent flow with the
// authorization code from the redirect.
func (h *AdminHandler) AuthorizeConnection(c *gin.Context) {
	var req authorizeConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: code is required"})
		return
	}

	conn, err := h.connections.CompleteAuthorization(c.Request.Context(), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connection_id": conn.ID,
		"account_id":    conn.AccountID,
		"expires_at":    conn.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

// AuditTrail lists the audit log for one agreement, newest first.
func (h *AdminHandler) AuditTrail(c *gin.Context) {
	ctx := c.Request.Context()

	agreementID, err := strconv.ParseInt(c.Param("agreement_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid agreement id"})
		return
	}

	entries, err := h.audit.ListByAgreement(ctx, agreementID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": toAuditResponses(entries)})
}

// RoomAuditTrail lists the audit log for one room, newest first.
func (h *AdminHandler) RoomAuditTrail(c *gin.Context) {
	ctx := c.Request.Context()

	roomID, err := strconv.ParseInt(c.Param("room_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	entries, err := h.audit.ListByRoom(ctx, roomID, 200)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": toAuditResponses(entries)})
}

// RequireAdminAPIKey middleware checks for a valid admin API key
func (h *AdminHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

type auditResponse struct {
	ID        int64          `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func toAuditResponses(entries []model.AuditEntry) []auditResponse {
	out := make([]auditResponse, len(entries))
	for i, e := range entries {
		out[i] = auditResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return out
}
