package router

import (
	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/handler"
)

func AdminRouter(group *gin.RouterGroup, h *handler.AdminHandler) {
	group.Use(h.RequireAdminAPIKey())
	group.POST("/agreements/:agreement_id/agent", h.SwapAgent)
	group.POST("/agreements/:agreement_id/reconcile", h.Reconcile)
	group.POST("/reconcile/sweep", h.Sweep)
	group.POST("/connection/authorize", h.AuthorizeConnection)
	group.GET("/agreements/:agreement_id/audit", h.AuditTrail)
	group.GET("/rooms/:room_id/audit", h.RoomAuditTrail)
}
