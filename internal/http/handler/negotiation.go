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

type NegotiationHandler struct {
	negotiation service.NegotiationService
}

func NewNegotiationHandler(negotiation service.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{negotiation: negotiation}
}

type createCounterRequest struct {
	TermsDelta map[string]any `json:"terms_delta" binding:"required"`
}

// CreateCounter opens a new counter offer in a room on behalf of the
// authenticated participant.
func (h *NegotiationHandler) CreateCounter(c *gin.Context) {
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

	var req createCounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: terms_delta is required"})
		return
	}

	counter, err := h.negotiation.CreateCounter(ctx, roomID, profile.ID, profile.Role, model.Terms(req.TermsDelta))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCounterOfferResponse(counter))
}

// PendingCounter returns the room's counter offer awaiting a response.
func (h *NegotiationHandler) PendingCounter(c *gin.Context) {
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

	counter, err := h.negotiation.PendingCounter(ctx, roomID, profile.ID, profile.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToCounterOfferResponse(counter))
}

type respondRequest struct {
	Action     string         `json:"action" binding:"required"`
	TermsDelta map[string]any `json:"terms_delta,omitempty"`
}

type respondResponse struct {
	State      string                    `json:"state"`
	Counter    dto.CounterOfferResponse  `json:"counter"`
	NewCounter *dto.CounterOfferResponse `json:"new_counter,omitempty"`
}

// Respond applies an accept, decline or recounter to a pending counter offer.
func (h *NegotiationHandler) Respond(c *gin.Context) {
	ctx := c.Request.Context()

	counterID, err := strconv.ParseInt(c.Param("counter_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid counter offer id"})
		return
	}

	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: action is required"})
		return
	}

	result, err := h.negotiation.Respond(ctx, counterID, profile.ID, profile.Role, service.ResponseAction(req.Action), model.Terms(req.TermsDelta))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := respondResponse{
		State:   result.State,
		Counter: dto.ToCounterOfferResponse(result.Counter),
	}
	if result.NewCounter != nil {
		nc := dto.ToCounterOfferResponse(result.NewCounter)
		resp.NewCounter = &nc
	}
	c.JSON(http.StatusOK, resp)
}
