package service

import (
	"parlay.app/coordinator/core/config"
	"parlay.app/coordinator/core/db"
	"parlay.app/coordinator/internal/docgen"
	"parlay.app/coordinator/internal/esign"
	"parlay.app/coordinator/internal/queue"
	"parlay.app/coordinator/internal/store"
)

// Services bundles every service implementation for transport wiring.
type Services struct {
	Connections *ConnectionManager
	Negotiation NegotiationService
	Envelopes   EnvelopeService
	Signing     SigningService
	Reconcile   ReconcileService
}

// New wires the full service graph: the connection manager feeds the provider
// client, which feeds the envelope, signing and reconcile services.
func New(cfg config.Config, database *db.DB, stores *store.Stores, producer queue.Producer) *Services {
	txRunner := NewTxRunner(database)

	oauth := esign.NewOAuthClient(cfg.ESign.TokenBaseURL, cfg.ESign.IntegrationKey, cfg.ESign.ClientSecret)
	connections := NewConnectionManager(stores.Connections(), oauth)
	provider := esign.NewClient(connections, esign.DefaultRetryPolicy())
	renderer := docgen.NewClient(cfg.DocGen.BaseURL, cfg.DocGen.APIKey)

	reconcile := NewReconcileService(txRunner, provider, renderer, producer, cfg.Review)

	return &Services{
		Connections: connections,
		Negotiation: NewNegotiationService(txRunner),
		Envelopes:   NewEnvelopeService(txRunner, renderer, provider),
		Signing:     NewSigningService(txRunner, provider, reconcile, cfg.ESign.SigningTokenTTL, cfg.PublicBaseURL, cfg.DashboardURL),
		Reconcile:   reconcile,
	}
}
