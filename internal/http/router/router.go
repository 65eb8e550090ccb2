package router

import (
	"github.com/gin-gonic/gin"

	"parlay.app/coordinator/internal/http/handler"
	"parlay.app/coordinator/internal/http/handler/webhook"
	"parlay.app/coordinator/internal/http/middleware"
	"parlay.app/coordinator/internal/service"
	"parlay.app/coordinator/internal/store"
)

type RouterConfig struct {
	AdminAPIKey   string
	WebhookSecret string
}

func SetupRoutes(router *gin.Engine, services *service.Services, stores *store.Stores, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		authed := v1.Group("")
		authed.Use(middleware.RequireProfile(stores.Profiles()))
		{
			negotiationHandler := handler.NewNegotiationHandler(services.Negotiation)
			NegotiationRouter(authed, negotiationHandler)

			agreementHandler := handler.NewAgreementHandler(services.Envelopes, services.Reconcile)
			signingHandler := handler.NewSigningHandler(services.Signing)
			AgreementRouter(authed, agreementHandler, signingHandler)
		}

		// The provider lands the signer here without our bearer token; the
		// single-use signing token is the credential.
		signingHandler := handler.NewSigningHandler(services.Signing)
		v1.GET("/signing/return", signingHandler.Return)

		webhookHandler := webhook.NewESignWebhookHandler(services.Reconcile, cfg.WebhookSecret)
		v1.POST("/webhooks/esign", webhookHandler.HandleEvent)

		adminHandler := handler.NewAdminHandler(services.Envelopes, services.Reconcile, services.Connections, stores.AuditLog(), cfg.AdminAPIKey)
		AdminRouter(v1.Group("/admin"), adminHandler)
	}
}
