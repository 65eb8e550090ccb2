package router

import (
	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/handler"
)

func NegotiationRouter(group *gin.RouterGroup, h *handler.NegotiationHandler) {
	group.POST("/rooms/:room_id/counters", h.CreateCounter)
	group.GET("/rooms/:room_id/counters/pending", h.PendingCounter)
	group.POST("/counters/:counter_id/respond", h.Respond)
}
