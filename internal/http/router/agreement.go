package router

import (
	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/handler"
)

func AgreementRouter(group *gin.RouterGroup, agreements *handler.AgreementHandler, signing *handler.SigningHandler) {
	group.POST("/rooms/:room_id/agreement", agreements.Generate)
	group.GET("/agreements/:agreement_id", agreements.Get)
	group.POST("/agreements/:agreement_id/signing-session", signing.CreateSession)
}
