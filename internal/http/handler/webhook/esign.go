package webhook

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/service"
)

// signatureHeader carries the provider's base64 HMAC-SHA256 of the raw body.
const signatureHeader = "X-Provider-Signature"

type ESignWebhookHandler struct {
	reconcile service.ReconcileService
	secret    string
}

func NewESignWebhookHandler(reconcile service.ReconcileService, secret string) *ESignWebhookHandler {
	return &ESignWebhookHandler{reconcile: reconcile, secret: secret}
}

// esignWebhookPayload mirrors the provider's envelope event notification.
type esignWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		EnvelopeID      string `json:"envelopeId"`
		EnvelopeSummary struct {
			Status     string `json:"status"`
			Recipients struct {
				Signers []esign.RecipientStatus `json:"signers"`
			} `json:"recipients"`
		} `json:"envelopeSummary"`
	} `json:"data"`
}

// HandleEvent verifies and applies one provider notification. After the
// signature checks out, processing problems are reported in the body with a
// 200 so the provider does not retry what a sweep will fix anyway.
func (h *ESignWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	// A missing secret means no signature can ever verify; answer like any
	// other signature failure so the provider gets no retry signal.
	if h.secret == "" {
		slog.ErrorContext(ctx, "webhook secret not configured, rejecting event")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if !verifySignature(h.secret, body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var payload esignWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "error": "unparseable payload"})
		return
	}
	if payload.Data.EnvelopeID == "" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "error": "missing envelope id"})
		return
	}

	err = h.reconcile.HandleWebhook(ctx, service.WebhookEnvelope{
		EnvelopeID: payload.Data.EnvelopeID,
		Status:     payload.Data.EnvelopeSummary.Status,
		Recipients: payload.Data.EnvelopeSummary.Recipients.Signers,
	})
	if err != nil {
		if service.IsKind(err, service.KindNotFound) {
			slog.WarnContext(ctx, "webhook for unknown envelope",
				"envelope_id", payload.Data.EnvelopeID,
				"event", payload.Event,
			)
			c.JSON(http.StatusOK, gin.H{"status": "ok", "error": "unknown envelope"})
			return
		}
		// Still a 200: the provider has no useful retry semantics for our
		// internal failures, and the sweep converges what this delivery missed.
		slog.ErrorContext(ctx, "failed to process envelope webhook",
			"error", err,
			"envelope_id", payload.Data.EnvelopeID,
			"event", payload.Event,
		)
		c.JSON(http.StatusOK, gin.H{"status": "ok", "error": "failed to process event"})
		return
	}

	slog.InfoContext(ctx, "envelope webhook processed",
		"envelope_id", payload.Data.EnvelopeID,
		"event", payload.Event,
		"envelope_status", payload.Data.EnvelopeSummary.Status,
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
